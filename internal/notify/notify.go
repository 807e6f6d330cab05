package notify

import "github.com/gen2brain/beeep"

// Send shows a desktop notification. Failures are returned, not fatal —
// a missing notification daemon shouldn't kill the reminder loop.
func Send(title, message string) error {
	return beeep.Notify(title, message, "")
}
