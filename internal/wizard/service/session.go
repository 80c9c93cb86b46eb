package service

import (
	"encoding/json"
	"time"

	"quotebuilder_backend/platform/ai/reasoner"

	"github.com/google/uuid"
)

// Screen states the app derives from a session.
const (
	ScreenIntro = "intro"
	ScreenChat  = "chat"
	ScreenDone  = "done"
)

// Session is one wizard conversation. It is JSON-encoded into the session
// store as a whole; the in-flight busy guard is process-local and not part
// of the persisted state.
type Session struct {
	ID           uuid.UUID             `json:"id"`
	OwnerID      uuid.UUID             `json:"ownerId"`
	Transcript   Transcript            `json:"transcript"`
	Draft        DraftQuote            `json:"draft"`
	State        json.RawMessage       `json:"state,omitempty"`
	Phase        string                `json:"phase,omitempty"`
	Defaults     reasoner.UserDefaults `json:"defaults"`
	QuickReplies []string              `json:"quickReplies,omitempty"`
	Committed    bool                  `json:"committed"`
	QuoteID      *uuid.UUID            `json:"quoteId,omitempty"`
	FailureCount int                   `json:"failureCount"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// NewSession seeds an empty session for a user. Defaults are read once at
// creation and pinned for the session's lifetime.
func NewSession(ownerID uuid.UUID, defaults reasoner.UserDefaults) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Defaults:  defaults,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Screen maps the session to the app screen that should be showing.
// "done" is driven solely by the server-reported phase (or a commit); the
// client never infers it from draft contents.
func (s *Session) Screen() string {
	if s.Committed || s.Phase == reasoner.PhaseDone {
		return ScreenDone
	}
	if len(s.Transcript) == 0 {
		return ScreenIntro
	}
	return ScreenChat
}

// sessionState wraps the raw token for the reasoner client, or nil when the
// conversation has no state yet.
func (s *Session) sessionState() *reasoner.SessionState {
	if len(s.State) == 0 {
		return nil
	}
	return &reasoner.SessionState{Raw: s.State}
}

// absorbState stores a returned state token verbatim and refreshes the
// readable phase. A nil reply state leaves the existing token untouched.
func (s *Session) absorbState(state *reasoner.SessionState) {
	if state == nil {
		return
	}
	s.State = state.Raw
	if phase := state.Phase(); phase != "" {
		s.Phase = phase
	}
}
