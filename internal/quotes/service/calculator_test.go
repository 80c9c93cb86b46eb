package service

import "testing"

func TestComputeTotals_ItemsPlusLabor(t *testing.T) {
	input := TotalsInput{
		Items: []TotalsItem{
			{Qty: 2, UnitPriceCents: 450},
			{Qty: 1, UnitPriceCents: 14900},
		},
		LaborCents:    60000,
		MarkupPercent: 0,
	}

	result := ComputeTotals(input)

	if result.SubtotalCents != 75800 {
		t.Fatalf("expected subtotal 75800, got %d", result.SubtotalCents)
	}
	if result.TotalCents != 75800 {
		t.Fatalf("expected total 75800, got %d", result.TotalCents)
	}
}

func TestComputeTotals_MarkupAppliesToSubtotal(t *testing.T) {
	input := TotalsInput{
		Items:         []TotalsItem{{Qty: 1, UnitPriceCents: 10000}},
		LaborCents:    5000,
		MarkupPercent: 10,
	}

	result := ComputeTotals(input)

	if result.SubtotalCents != 15000 {
		t.Fatalf("expected subtotal 15000, got %d", result.SubtotalCents)
	}
	if result.TotalCents != 16500 {
		t.Fatalf("expected total 16500, got %d", result.TotalCents)
	}
}

func TestComputeTotals_FractionalQuantityRoundsPerLine(t *testing.T) {
	input := TotalsInput{
		Items: []TotalsItem{
			{Qty: 1.5, UnitPriceCents: 333}, // 499.5 -> 500
			{Qty: 1.5, UnitPriceCents: 333},
		},
	}

	result := ComputeTotals(input)

	if result.LineTotalsCents[0] != 500 {
		t.Fatalf("expected line total 500, got %d", result.LineTotalsCents[0])
	}
	if result.SubtotalCents != 1000 {
		t.Fatalf("expected subtotal 1000, got %d", result.SubtotalCents)
	}
}

func TestComputeTotals_EmptyQuote(t *testing.T) {
	result := ComputeTotals(TotalsInput{})

	if result.SubtotalCents != 0 || result.TotalCents != 0 {
		t.Fatalf("expected zero totals, got subtotal %d total %d", result.SubtotalCents, result.TotalCents)
	}
}
