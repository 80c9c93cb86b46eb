package service

import (
	"reflect"
	"testing"
)

func TestSuggestQuickRepliesNoClusterReturnsNil(t *testing.T) {
	if got := SuggestQuickReplies("I've added the toilet to your quote."); got != nil {
		t.Fatalf("expected nil for text with no cluster, got %v", got)
	}
}

func TestSuggestQuickRepliesDeterministic(t *testing.T) {
	text := "What finish level are you aiming for, and what's the budget?"

	first := SuggestQuickReplies(text)
	second := SuggestQuickReplies(text)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same text must yield same chips: %v vs %v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected budget cluster to match")
	}
}

func TestSuggestQuickRepliesFirstRuleWins(t *testing.T) {
	// Text hits both the budget cluster and the labor cluster; budget is
	// earlier in the rule order.
	got := SuggestQuickReplies("What's your budget for labor on this one?")

	want := []string{"Budget-friendly", "Mid-range", "High-end", "Not sure yet"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected budget cluster to win, got %v", got)
	}
}

func TestSuggestQuickRepliesProductSubRules(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"Which type of tile would you prefer?", []string{"Ceramic", "Porcelain", "Natural stone"}},
		{"What kind of vanity are you thinking?", []string{"Single sink", "Double sink"}},
		{"What kind of toilet do you want?", []string{"Standard", "Comfort height"}},
		{"Which type of countertop do you prefer?", []string{"Show me options", "You pick", "Cheapest option"}},
	}

	for _, tc := range cases {
		if got := SuggestQuickReplies(tc.text); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("text %q: expected %v, got %v", tc.text, tc.want, got)
		}
	}
}

func TestSuggestQuickRepliesNeverMoreThanFour(t *testing.T) {
	for _, text := range []string{
		"What's the budget?",
		"What are the dimensions of the room?",
		"Is this a full remodel or partial?",
		"What project can I help you with today?",
		"Anything else to add?",
		"How many hours of labor?",
	} {
		if got := SuggestQuickReplies(text); len(got) > 4 {
			t.Fatalf("text %q produced %d chips, max is 4", text, len(got))
		}
	}
}

func TestSuggestQuickRepliesCaseInsensitive(t *testing.T) {
	lower := SuggestQuickReplies("what's the budget?")
	upper := SuggestQuickReplies("WHAT'S THE BUDGET?")

	if !reflect.DeepEqual(lower, upper) {
		t.Fatalf("matching must be case-insensitive: %v vs %v", lower, upper)
	}
}
