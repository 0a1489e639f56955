package conversation

import (
	"github.com/google/uuid"

	"goa.design/uistream/ui"
)

// ResolveMessageID returns the assistant message ID a new run should stream
// under. When the conversation ends with an assistant message the run
// continues it, so subsequent events merge into the same message across
// requests. Otherwise a fresh identifier is minted.
func ResolveMessageID(prior []ui.Message) string {
	if i := trailingAssistant(prior); i >= 0 {
		return prior[i].ID
	}
	return uuid.NewString()
}
