package service

import (
	"quotebuilder_backend/platform/ai/reasoner"

	"github.com/google/uuid"
)

// Turn is one entry in the conversation transcript. DisplayText is what the
// app renders; APIText, when set, replaces it in the payload sent to the
// reasoning service. Synthetic turns (catalog search results, batched
// selections) use the split so the model sees structured data while the user
// sees a short collapsible note.
type Turn struct {
	ID          uuid.UUID     `json:"id"`
	Role        reasoner.Role `json:"role"`
	DisplayText string        `json:"displayText"`
	APIText     *string       `json:"apiText,omitempty"`
	Hidden      bool          `json:"hidden,omitempty"`
}

// NewUserTurn creates a plain user turn.
func NewUserTurn(text string) Turn {
	return Turn{ID: uuid.New(), Role: reasoner.RoleUser, DisplayText: text}
}

// NewAssistantTurn creates a plain assistant turn.
func NewAssistantTurn(text string) Turn {
	return Turn{ID: uuid.New(), Role: reasoner.RoleAssistant, DisplayText: text}
}

// NewSyntheticUserTurn creates a hidden user turn whose API payload differs
// from what the transcript shows.
func NewSyntheticUserTurn(display, api string) Turn {
	return Turn{
		ID:          uuid.New(),
		Role:        reasoner.RoleUser,
		DisplayText: display,
		APIText:     &api,
		Hidden:      true,
	}
}

// Transcript is the append-only ordered conversation log.
type Transcript []Turn

// APIMessages projects the transcript for an outbound reasoning request.
// APIText wins over DisplayText when present.
func (t Transcript) APIMessages() []reasoner.Message {
	messages := make([]reasoner.Message, 0, len(t))
	for _, turn := range t {
		content := turn.DisplayText
		if turn.APIText != nil {
			content = *turn.APIText
		}
		messages = append(messages, reasoner.Message{Role: turn.Role, Content: content})
	}
	return messages
}

// DisplayTurns projects the transcript for rendering. Hidden turns are kept
// (the app collapses them) so ordering stays stable across both projections.
func (t Transcript) DisplayTurns() []Turn {
	out := make([]Turn, len(t))
	copy(out, t)
	return out
}

// LastAssistantText returns the text of the most recent assistant turn that
// carries any, or an empty string when none does. Prose-free tool-call turns
// are skipped so they never blank out an earlier reply.
func (t Transcript) LastAssistantText() string {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == reasoner.RoleAssistant && t[i].DisplayText != "" {
			return t[i].DisplayText
		}
	}
	return ""
}
