package ai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// proposalSchema builds the strict JSON schema the model's output must
// match, derived from the Proposal types themselves.
func proposalSchema() map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(&Proposal{})

	raw, _ := json.Marshal(schema)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

func buildSystemPrompt(agenda []AgendaItem, now time.Time, tz string) string {
	agendaJSON, _ := json.Marshal(agenda)

	return fmt.Sprintf(`You are a scheduling assistant for focus blocks. Your job is to translate the user's request into move, create, and delete operations on their blocks.

Current time: %s
Timezone: %s

Existing blocks:
%s

Rules:
- "move" needs block_id and to; "create" needs start (end optional); "delete" needs block_id
- Use exact block_id values from the list above, never invent one
- Times are ISO-8601 timestamps; a bare weekday name like "friday" or a phrase like "tomorrow morning" is acceptable when the user was vague
- Never target a time in the past
- If the request is ambiguous or matches no block, set clarification and return no operations

Return valid JSON matching the required schema.`,
		now.Format(time.RFC3339), tz, string(agendaJSON))
}

func buildUserPrompt(request string) string {
	return fmt.Sprintf("Request: %s", request)
}
