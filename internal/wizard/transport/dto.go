// Package transport defines the wizard module's request and response shapes.
package transport

import (
	"quotebuilder_backend/internal/wizard/service"
	"quotebuilder_backend/platform/ai/reasoner"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// MessageRequest is one user utterance (typed or transcribed client-side).
type MessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// SelectionRequest is one product picked from a displayed list.
type SelectionRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Qty       float64   `json:"qty" validate:"gt=0"`
}

// SelectionsRequest flushes the client-side selection set in one batch.
type SelectionsRequest struct {
	Selections []SelectionRequest `json:"selections" validate:"required,min=1,max=50,dive"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// TurnResponse is one transcript entry in the display projection.
type TurnResponse struct {
	ID     uuid.UUID `json:"id"`
	Role   string    `json:"role"`
	Text   string    `json:"text"`
	Hidden bool      `json:"hidden,omitempty"`
}

// DraftItemResponse is one draft line item with its computed line total.
type DraftItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	Name           string     `json:"name"`
	Qty            float64    `json:"qty"`
	UnitPriceCents int64      `json:"unitPriceCents"`
}

// DraftResponse summarizes the quote under construction.
type DraftResponse struct {
	Name          string              `json:"name"`
	ClientName    string              `json:"clientName"`
	Items         []DraftItemResponse `json:"items"`
	LaborCents    int64               `json:"laborCents"`
	MarkupPercent float64             `json:"markupPercent"`
	SubtotalCents int64               `json:"subtotalCents"`
	TotalCents    int64               `json:"totalCents"`
	Empty         bool                `json:"empty"`
}

// SessionResponse is the full wizard session view.
type SessionResponse struct {
	ID           uuid.UUID      `json:"id"`
	Screen       string         `json:"screen"`
	Phase        string         `json:"phase,omitempty"`
	Turns        []TurnResponse `json:"turns"`
	Draft        DraftResponse  `json:"draft"`
	QuickReplies []string       `json:"quickReplies,omitempty"`
	Committed    bool           `json:"committed"`
	QuoteID      *uuid.UUID     `json:"quoteId,omitempty"`
}

// UISignalsResponse tells the app which picker screen to open, if any.
type UISignalsResponse struct {
	ShowRemoveItem   bool `json:"showRemoveItem,omitempty"`
	ShowEditQuantity bool `json:"showEditQuantity,omitempty"`
}

// TurnResultResponse is the outcome of posting a message or selections.
type TurnResultResponse struct {
	Reply        string                   `json:"reply"`
	QuickReplies []string                 `json:"quickReplies,omitempty"`
	Display      *reasoner.DisplayPayload `json:"display,omitempty"`
	UISignals    UISignalsResponse        `json:"uiSignals"`
	CapExhausted bool                     `json:"capExhausted,omitempty"`
	Session      SessionResponse          `json:"session"`
}

// CommitResponse points at the created quote.
type CommitResponse struct {
	QuoteID uuid.UUID `json:"quoteId"`
}

// ── Mapping ───────────────────────────────────────────────────────────────────

// ToSessionResponse maps a session to its API view.
func ToSessionResponse(s *service.Session) SessionResponse {
	turns := make([]TurnResponse, 0, len(s.Transcript))
	for _, turn := range s.Transcript.DisplayTurns() {
		turns = append(turns, TurnResponse{
			ID:     turn.ID,
			Role:   string(turn.Role),
			Text:   turn.DisplayText,
			Hidden: turn.Hidden,
		})
	}

	return SessionResponse{
		ID:           s.ID,
		Screen:       s.Screen(),
		Phase:        s.Phase,
		Turns:        turns,
		Draft:        toDraftResponse(s.Draft),
		QuickReplies: s.QuickReplies,
		Committed:    s.Committed,
		QuoteID:      s.QuoteID,
	}
}

func toDraftResponse(d service.DraftQuote) DraftResponse {
	items := make([]DraftItemResponse, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, DraftItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	return DraftResponse{
		Name:          d.Name,
		ClientName:    d.ClientName,
		Items:         items,
		LaborCents:    d.LaborCents,
		MarkupPercent: d.MarkupPercent,
		SubtotalCents: d.SubtotalCents(),
		TotalCents:    d.TotalCents(),
		Empty:         d.Empty(),
	}
}

// ToTurnResultResponse maps a turn outcome to its API view.
func ToTurnResultResponse(r *service.TurnResult) TurnResultResponse {
	return TurnResultResponse{
		Reply:        r.Reply,
		QuickReplies: r.QuickReplies,
		Display:      r.Display,
		UISignals: UISignalsResponse{
			ShowRemoveItem:   r.UISignals.ShowRemoveItem,
			ShowEditQuantity: r.UISignals.ShowEditQuantity,
		},
		CapExhausted: r.CapExhausted,
		Session:      ToSessionResponse(r.Session),
	}
}
