package service

import "strings"

// quickReplyRule maps a keyword cluster to its canned reply chips. Rules are
// evaluated in order; the first cluster with a hit wins.
type quickReplyRule struct {
	keywords []string
	replies  func(text string) []string
}

func fixed(replies ...string) func(string) []string {
	return func(string) []string { return replies }
}

var quickReplyRules = []quickReplyRule{
	{
		keywords: []string{"budget", "finish level", "quality", "price range"},
		replies:  fixed("Budget-friendly", "Mid-range", "High-end", "Not sure yet"),
	},
	{
		keywords: []string{"dimensions", "square footage", "how big", "measurements", "sq ft", "size of"},
		replies:  fixed("8x10", "10x12", "12x15", "I'll measure later"),
	},
	{
		keywords: []string{"full remodel", "scope", "partial", "how much of"},
		replies:  fixed("Full remodel", "Partial update", "Just fixtures"),
	},
	{
		keywords: []string{"prefer", "which type", "what kind", "what style"},
		replies:  preferenceReplies,
	},
	{
		keywords: []string{"should i add", "shall i add", "sound good", "confirm", "is that right"},
		replies:  fixed("Yes, add it", "No, skip it"),
	},
	{
		keywords: []string{"what project", "working on", "what are we building", "help you with"},
		replies:  fixed("Bathroom remodel", "Kitchen remodel", "Flooring", "Painting"),
	},
	{
		keywords: []string{"anything else", "what's next", "add more"},
		replies:  fixed("Add labor", "Apply markup", "That's everything"),
	},
	{
		keywords: []string{"labor", "hours", "hourly rate"},
		replies:  fixed("8 hours", "16 hours", "Skip labor"),
	},
}

// preferenceReplies refines the generic preference cluster with
// product-specific chips when the question names a product family.
func preferenceReplies(text string) []string {
	switch {
	case strings.Contains(text, "tile"):
		return []string{"Ceramic", "Porcelain", "Natural stone"}
	case strings.Contains(text, "vanity"):
		return []string{"Single sink", "Double sink"}
	case strings.Contains(text, "toilet"):
		return []string{"Standard", "Comfort height"}
	case strings.Contains(text, "paint"):
		return []string{"Matte", "Eggshell", "Semi-gloss"}
	default:
		return []string{"Show me options", "You pick", "Cheapest option"}
	}
}

const maxQuickReplies = 4

// SuggestQuickReplies derives reply chips from the assistant's text when the
// reasoning service supplied none. Deterministic: same text, same chips.
// Returns nil when no cluster matches.
func SuggestQuickReplies(replyText string) []string {
	text := strings.ToLower(replyText)

	for _, rule := range quickReplyRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				replies := rule.replies(text)
				if len(replies) > maxQuickReplies {
					replies = replies[:maxQuickReplies]
				}
				return replies
			}
		}
	}

	return nil
}
