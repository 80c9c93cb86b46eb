package service

import "math"

// TotalsInput is one quote's pricing inputs.
type TotalsInput struct {
	Items         []TotalsItem
	LaborCents    int64
	MarkupPercent float64
}

// TotalsItem is one line item's pricing inputs.
type TotalsItem struct {
	Qty            float64
	UnitPriceCents int64
}

// TotalsResult carries the server-side computed totals.
type TotalsResult struct {
	LineTotalsCents []int64
	SubtotalCents   int64
	TotalCents      int64
}

// ComputeTotals calculates quote totals: each line is qty times unit price,
// the subtotal adds labor, and markup applies to the subtotal. Each line is
// rounded to whole cents before summing so line totals always add up to the
// displayed subtotal.
func ComputeTotals(input TotalsInput) TotalsResult {
	result := TotalsResult{
		LineTotalsCents: make([]int64, len(input.Items)),
	}

	var itemsCents int64
	for i, item := range input.Items {
		line := roundCents(item.Qty * float64(item.UnitPriceCents))
		result.LineTotalsCents[i] = line
		itemsCents += line
	}

	result.SubtotalCents = itemsCents + input.LaborCents
	result.TotalCents = roundCents(float64(result.SubtotalCents) * (1 + input.MarkupPercent/100))
	return result
}

func roundCents(value float64) int64 {
	return int64(math.Round(value))
}
