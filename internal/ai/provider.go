package ai

import (
	"context"
	"time"
)

type Provider interface {
	ProposeOperations(ctx context.Context, request string, agenda []AgendaItem, now time.Time) (*Proposal, error)
}
