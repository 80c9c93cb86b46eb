package service

import (
	"encoding/json"
	"testing"

	"quotebuilder_backend/platform/ai/reasoner"
)

func TestApplyBatchEqualsSequential(t *testing.T) {
	calls := []Call{
		SetQuoteName{Name: "Bathroom remodel"},
		AddItem{Name: "Toilet", Qty: 1, UnitPriceCents: 14900},
		AddItem{Name: "Tile", Qty: 80, UnitPriceCents: 350},
		SetLabor{Hours: 8, RateCents: 7500},
		ApplyMarkup{Percent: 15},
	}

	batched, _ := Apply(DraftQuote{}, calls)

	sequential := DraftQuote{}
	for _, call := range calls {
		sequential, _ = Apply(sequential, []Call{call})
	}

	if batched.Name != sequential.Name ||
		batched.LaborCents != sequential.LaborCents ||
		batched.MarkupPercent != sequential.MarkupPercent ||
		len(batched.Items) != len(sequential.Items) {
		t.Fatalf("batched apply diverged from sequential apply: %+v vs %+v", batched, sequential)
	}
	for i := range batched.Items {
		if batched.Items[i].Name != sequential.Items[i].Name ||
			batched.Items[i].Qty != sequential.Items[i].Qty ||
			batched.Items[i].UnitPriceCents != sequential.Items[i].UnitPriceCents {
			t.Fatalf("item %d diverged: %+v vs %+v", i, batched.Items[i], sequential.Items[i])
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	original := DraftQuote{Name: "Before", Items: []DraftItem{{Name: "Sink", Qty: 1, UnitPriceCents: 20000}}}

	next, _ := Apply(original, []Call{
		SetQuoteName{Name: "After"},
		AddItem{Name: "Faucet", Qty: 1, UnitPriceCents: 9900},
	})

	if original.Name != "Before" || len(original.Items) != 1 {
		t.Fatalf("input draft was mutated: %+v", original)
	}
	if next.Name != "After" || len(next.Items) != 2 {
		t.Fatalf("unexpected result draft: %+v", next)
	}
}

func TestApplyDuplicateProductsAppend(t *testing.T) {
	item := AddItem{Name: "Toilet", Qty: 1, UnitPriceCents: 14900}

	draft, _ := Apply(DraftQuote{}, []Call{item, item})

	if len(draft.Items) != 2 {
		t.Fatalf("expected duplicate product to append a second line, got %d items", len(draft.Items))
	}
}

func TestApplyCollapsesLaborToCents(t *testing.T) {
	draft, _ := Apply(DraftQuote{}, []Call{SetLabor{Hours: 8, RateCents: 7500}})

	if draft.LaborCents != 60000 {
		t.Fatalf("expected labor of 60000 cents, got %d", draft.LaborCents)
	}
}

func TestSetLaborCentsRoundsHalfAwayFromZero(t *testing.T) {
	// Same rounding convention as line and quote totals.
	cases := []struct {
		hours float64
		rate  int64
		want  int64
	}{
		{8, 7500, 60000},
		{1.5, 333, 500},
		{-2.5, 100, -250},
		{-0.5, 101, -51},
	}
	for _, tc := range cases {
		got := SetLabor{Hours: tc.hours, RateCents: tc.rate}.Cents()
		if got != tc.want {
			t.Fatalf("SetLabor(%v h @ %d) = %d cents, want %d", tc.hours, tc.rate, got, tc.want)
		}
	}
}

func TestApplyUISignalsDoNotTouchDraft(t *testing.T) {
	original := DraftQuote{Items: []DraftItem{{Name: "Tile", Qty: 80, UnitPriceCents: 350}}}

	draft, signals := Apply(original, []Call{ShowRemoveItem{}, ShowEditQuantity{}})

	if !signals.ShowRemoveItem || !signals.ShowEditQuantity {
		t.Fatalf("expected both UI signals, got %+v", signals)
	}
	if len(draft.Items) != 1 || draft.Items[0].Qty != 80 {
		t.Fatalf("UI signals must not change the draft: %+v", draft)
	}
}

func TestApplySuggestAssemblyAddsAllItems(t *testing.T) {
	draft, _ := Apply(DraftQuote{}, []Call{SuggestAssembly{
		AssemblyName: "Standard bathroom",
		Items: []AddItem{
			{Name: "Toilet", Qty: 1, UnitPriceCents: 14900},
			{Name: "Vanity", Qty: 1, UnitPriceCents: 45000},
			{Name: "Mirror", Qty: 1, UnitPriceCents: 8900},
		},
	}})

	if len(draft.Items) != 3 {
		t.Fatalf("expected 3 assembly items, got %d", len(draft.Items))
	}
	if draft.Name != "Standard bathroom" {
		t.Fatalf("expected assembly to name the unnamed draft, got %q", draft.Name)
	}
}

func TestApplyClampsNonPositiveQty(t *testing.T) {
	draft, _ := Apply(DraftQuote{}, []Call{AddItem{Name: "Grout", Qty: 0, UnitPriceCents: 1200}})

	if draft.Items[0].Qty != 1 {
		t.Fatalf("expected qty clamped to 1, got %g", draft.Items[0].Qty)
	}
}

func TestDecodeCallsSkipsUnknownKinds(t *testing.T) {
	raw := []reasoner.ToolCall{
		{Name: "setQuoteName", Args: json.RawMessage(`{"name":"Deck build"}`)},
		{Name: "launchFireworks", Args: json.RawMessage(`{}`)},
		{Name: "addItem", Args: json.RawMessage(`{"name":"Lumber","qty":20,"unitPriceCents":899}`)},
	}

	calls, skipped := DecodeCalls(raw)

	if len(calls) != 2 {
		t.Fatalf("expected 2 decoded calls, got %d", len(calls))
	}
	if len(skipped) != 1 || skipped[0] != "launchFireworks" {
		t.Fatalf("expected the unknown kind to be reported, got %v", skipped)
	}
}

func TestDecodeCallsSkipsMalformedArgs(t *testing.T) {
	raw := []reasoner.ToolCall{
		{Name: "addItem", Args: json.RawMessage(`{"name":`)},
	}

	calls, skipped := DecodeCalls(raw)

	if len(calls) != 0 || len(skipped) != 1 {
		t.Fatalf("expected malformed args to be skipped, got calls=%d skipped=%v", len(calls), skipped)
	}
}

func TestPartitionCallsSeparatesSearches(t *testing.T) {
	calls := []Call{
		SearchCatalog{Query: "toilet"},
		AddItem{Name: "Tile", Qty: 10, UnitPriceCents: 350},
		SearchCatalog{Query: "vanity"},
	}

	searches, rest := PartitionCalls(calls)

	if len(searches) != 2 || len(rest) != 1 {
		t.Fatalf("expected 2 searches and 1 other call, got %d and %d", len(searches), len(rest))
	}
	if searches[0].Query != "toilet" || searches[1].Query != "vanity" {
		t.Fatalf("search order not preserved: %+v", searches)
	}
}

func TestDraftTotals(t *testing.T) {
	draft := DraftQuote{
		Items: []DraftItem{
			{Name: "Toilet", Qty: 1, UnitPriceCents: 14900},
			{Name: "Tile", Qty: 2, UnitPriceCents: 450},
		},
		LaborCents:    60000,
		MarkupPercent: 10,
	}

	if got := draft.SubtotalCents(); got != 75800 {
		t.Fatalf("expected subtotal 75800, got %d", got)
	}
	if got := draft.TotalCents(); got != 83380 {
		t.Fatalf("expected total 83380, got %d", got)
	}
}

func TestDraftEmpty(t *testing.T) {
	if !(DraftQuote{}).Empty() {
		t.Fatal("zero draft should be empty")
	}
	if (DraftQuote{Name: "Deck"}).Empty() {
		t.Fatal("named draft should not be empty")
	}
	if (DraftQuote{Items: []DraftItem{{Name: "Lumber", Qty: 1}}}).Empty() {
		t.Fatal("draft with items should not be empty")
	}
}
