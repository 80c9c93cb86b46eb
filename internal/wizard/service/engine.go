package service

import (
	"math"

	"github.com/google/uuid"
)

// DraftItem is one line item in the draft quote.
type DraftItem struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	Name           string     `json:"name"`
	Qty            float64    `json:"qty"`
	UnitPriceCents int64      `json:"unitPriceCents"`
}

// DraftQuote is the quote under construction. It only ever grows during a
// conversation; removal and quantity edits happen through dedicated app
// screens after a UI signal, not through tool calls.
type DraftQuote struct {
	Name          string      `json:"name"`
	ClientName    string      `json:"clientName"`
	Items         []DraftItem `json:"items"`
	LaborCents    int64       `json:"laborCents"`
	MarkupPercent float64     `json:"markupPercent"`
}

// Empty reports whether the draft holds nothing worth committing.
func (d DraftQuote) Empty() bool {
	return d.Name == "" && len(d.Items) == 0
}

// SubtotalCents is the sum of all line totals plus labor.
func (d DraftQuote) SubtotalCents() int64 {
	var subtotal int64
	for _, item := range d.Items {
		subtotal += roundCents(item.Qty * float64(item.UnitPriceCents))
	}
	return subtotal + d.LaborCents
}

// TotalCents is the subtotal with markup applied.
func (d DraftQuote) TotalCents() int64 {
	subtotal := d.SubtotalCents()
	return roundCents(float64(subtotal) * (1 + d.MarkupPercent/100))
}

// clone returns a deep copy so tool application can stay atomic.
func (d DraftQuote) clone() DraftQuote {
	out := d
	out.Items = make([]DraftItem, len(d.Items))
	copy(out.Items, d.Items)
	return out
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// UISignals are the screen-mode requests produced by a batch of tool calls.
type UISignals struct {
	ShowRemoveItem   bool `json:"showRemoveItem,omitempty"`
	ShowEditQuantity bool `json:"showEditQuantity,omitempty"`
}

// Apply executes a batch of tool calls against the draft and returns the
// updated copy plus any UI signals. The input draft is never mutated.
// Applying a batch is equivalent to applying each call in order.
// SearchCatalog calls are ignored here; the conversation loop resolves them.
func Apply(draft DraftQuote, calls []Call) (DraftQuote, UISignals) {
	next := draft.clone()
	var signals UISignals

	for _, call := range calls {
		switch c := call.(type) {
		case SetQuoteName:
			next.Name = c.Name
		case SetClientName:
			next.ClientName = c.Name
		case AddItem:
			next.Items = append(next.Items, newDraftItem(c))
		case SetLabor:
			next.LaborCents = c.Cents()
		case ApplyMarkup:
			next.MarkupPercent = c.Percent
		case SuggestAssembly:
			if next.Name == "" && c.AssemblyName != "" {
				next.Name = c.AssemblyName
			}
			for _, item := range c.Items {
				next.Items = append(next.Items, newDraftItem(item))
			}
		case ShowRemoveItem:
			signals.ShowRemoveItem = true
		case ShowEditQuantity:
			signals.ShowEditQuantity = true
		case SearchCatalog:
			// resolved by the loop, not the engine
		}
	}

	return next, signals
}

func newDraftItem(c AddItem) DraftItem {
	qty := c.Qty
	if qty <= 0 {
		qty = 1
	}
	return DraftItem{
		ID:             uuid.New(),
		ProductID:      c.ProductID,
		Name:           c.Name,
		Qty:            qty,
		UnitPriceCents: c.UnitPriceCents,
	}
}
