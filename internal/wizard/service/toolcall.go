package service

import (
	"encoding/json"

	"quotebuilder_backend/platform/ai/reasoner"

	"github.com/google/uuid"
)

// Call is a decoded, typed tool call requested by the reasoning service.
// The set of implementations is closed; DecodeCalls drops anything else.
type Call interface {
	isCall()
}

// SetQuoteName names the draft quote.
type SetQuoteName struct {
	Name string `json:"name"`
}

// SetClientName records the client the quote is for.
type SetClientName struct {
	Name string `json:"name"`
}

// AddItem appends one line item to the draft. Duplicate products append a
// second line; the engine never merges.
type AddItem struct {
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	Name           string     `json:"name"`
	Qty            float64    `json:"qty"`
	UnitPriceCents int64      `json:"unitPriceCents"`
}

// SetLabor records labor as hours at a rate. The draft stores only the
// collapsed cents amount; the breakdown stays on the call for logging.
type SetLabor struct {
	Hours     float64 `json:"hours"`
	RateCents int64   `json:"rateCents"`
}

// Cents returns the labor charge collapsed to cents.
func (c SetLabor) Cents() int64 {
	return roundCents(c.Hours * float64(c.RateCents))
}

// ApplyMarkup sets the draft's markup percentage.
type ApplyMarkup struct {
	Percent float64 `json:"percent"`
}

// SuggestAssembly appends a named group of line items in one step.
type SuggestAssembly struct {
	AssemblyName string    `json:"assemblyName"`
	Items        []AddItem `json:"items"`
}

// SearchCatalog asks for a product lookup. It never mutates the draft; the
// loop resolves it locally and feeds results back to the reasoning service.
type SearchCatalog struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// ShowRemoveItem asks the app to enter item-removal mode.
type ShowRemoveItem struct{}

// ShowEditQuantity asks the app to enter quantity-edit mode.
type ShowEditQuantity struct{}

func (SetQuoteName) isCall()     {}
func (SetClientName) isCall()    {}
func (AddItem) isCall()          {}
func (SetLabor) isCall()         {}
func (ApplyMarkup) isCall()      {}
func (SuggestAssembly) isCall()  {}
func (SearchCatalog) isCall()    {}
func (ShowRemoveItem) isCall()   {}
func (ShowEditQuantity) isCall() {}

// Tool kind names as the reasoning service emits them.
const (
	kindSetQuoteName     = "setQuoteName"
	kindSetClientName    = "setClientName"
	kindAddItem          = "addItem"
	kindSetLabor         = "setLabor"
	kindApplyMarkup      = "applyMarkup"
	kindSuggestAssembly  = "suggestAssembly"
	kindSearchCatalog    = "searchCatalog"
	kindShowRemoveItem   = "showRemoveItem"
	kindShowEditQuantity = "showEditQuantity"
)

// DecodeCalls turns the reasoning service's raw tool calls into typed calls.
// Unknown kinds and undecodable arguments are skipped and reported in the
// second return value; they never fail the turn.
func DecodeCalls(raw []reasoner.ToolCall) ([]Call, []string) {
	var calls []Call
	var skipped []string

	for _, tc := range raw {
		call, ok := decodeCall(tc)
		if !ok {
			skipped = append(skipped, tc.Name)
			continue
		}
		calls = append(calls, call)
	}

	return calls, skipped
}

func decodeCall(tc reasoner.ToolCall) (Call, bool) {
	switch tc.Name {
	case kindSetQuoteName:
		var c SetQuoteName
		return c, decodeArgs(tc.Args, &c)
	case kindSetClientName:
		var c SetClientName
		return c, decodeArgs(tc.Args, &c)
	case kindAddItem:
		var c AddItem
		return c, decodeArgs(tc.Args, &c)
	case kindSetLabor:
		var c SetLabor
		return c, decodeArgs(tc.Args, &c)
	case kindApplyMarkup:
		var c ApplyMarkup
		return c, decodeArgs(tc.Args, &c)
	case kindSuggestAssembly:
		var c SuggestAssembly
		return c, decodeArgs(tc.Args, &c)
	case kindSearchCatalog:
		var c SearchCatalog
		return c, decodeArgs(tc.Args, &c)
	case kindShowRemoveItem:
		return ShowRemoveItem{}, true
	case kindShowEditQuantity:
		return ShowEditQuantity{}, true
	default:
		return nil, false
	}
}

func decodeArgs(args json.RawMessage, dst any) bool {
	if len(args) == 0 {
		return true
	}
	return json.Unmarshal(args, dst) == nil
}

// PartitionCalls splits catalog searches from draft-affecting calls while
// preserving relative order within each group.
func PartitionCalls(calls []Call) (searches []SearchCatalog, rest []Call) {
	for _, call := range calls {
		if s, ok := call.(SearchCatalog); ok {
			searches = append(searches, s)
			continue
		}
		rest = append(rest, call)
	}
	return searches, rest
}

// ToolDefinitions describes every tool advertised to the reasoning service.
func ToolDefinitions() []reasoner.ToolDefinition {
	return []reasoner.ToolDefinition{
		{
			Name:        kindSetQuoteName,
			Description: "Set the quote's title.",
			Parameters: objectSchema(map[string]any{
				"name": map[string]any{"type": "string"},
			}, "name"),
		},
		{
			Name:        kindSetClientName,
			Description: "Set the name of the client the quote is for.",
			Parameters: objectSchema(map[string]any{
				"name": map[string]any{"type": "string"},
			}, "name"),
		},
		{
			Name:        kindAddItem,
			Description: "Add one line item to the quote. Call once per item; duplicates are kept as separate lines.",
			Parameters: objectSchema(map[string]any{
				"productId":      map[string]any{"type": "string", "description": "Catalog product id, when the item came from a search result."},
				"name":           map[string]any{"type": "string"},
				"qty":            map[string]any{"type": "number"},
				"unitPriceCents": map[string]any{"type": "integer"},
			}, "name", "qty", "unitPriceCents"),
		},
		{
			Name:        kindSetLabor,
			Description: "Set the labor charge as hours worked at an hourly rate in cents.",
			Parameters: objectSchema(map[string]any{
				"hours":     map[string]any{"type": "number"},
				"rateCents": map[string]any{"type": "integer"},
			}, "hours", "rateCents"),
		},
		{
			Name:        kindApplyMarkup,
			Description: "Apply a markup percentage to the quote total.",
			Parameters: objectSchema(map[string]any{
				"percent": map[string]any{"type": "number"},
			}, "percent"),
		},
		{
			Name:        kindSuggestAssembly,
			Description: "Add a named group of related line items in one step, e.g. everything for a standard bathroom.",
			Parameters: objectSchema(map[string]any{
				"assemblyName": map[string]any{"type": "string"},
				"items": map[string]any{
					"type": "array",
					"items": objectSchema(map[string]any{
						"productId":      map[string]any{"type": "string"},
						"name":           map[string]any{"type": "string"},
						"qty":            map[string]any{"type": "number"},
						"unitPriceCents": map[string]any{"type": "integer"},
					}, "name", "qty", "unitPriceCents"),
				},
			}, "assemblyName", "items"),
		},
		{
			Name:        kindSearchCatalog,
			Description: "Search the user's product catalog. Results are returned to you in the next message; do not invent prices when the catalog can supply them.",
			Parameters: objectSchema(map[string]any{
				"query":    map[string]any{"type": "string"},
				"category": map[string]any{"type": "string"},
				"limit":    map[string]any{"type": "integer"},
			}, "query"),
		},
		{
			Name:        kindShowRemoveItem,
			Description: "Ask the app to show the remove-item picker.",
			Parameters:  objectSchema(map[string]any{}),
		},
		{
			Name:        kindShowEditQuantity,
			Description: "Ask the app to show the edit-quantity picker.",
			Parameters:  objectSchema(map[string]any{}),
		},
	}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
