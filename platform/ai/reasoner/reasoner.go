// Package reasoner defines the client contract for the remote reasoning
// service that drives the quote wizard, plus its transport implementations.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry as sent to the reasoning service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserDefaults carries per-user defaults the service may use to seed slots.
type UserDefaults struct {
	MarkupPercent  *float64 `json:"markupPercent,omitempty"`
	LaborRateCents *int64   `json:"laborRateCents,omitempty"`
}

// SessionState is the opaque conversation-state token owned by the reasoning
// service. The client echoes Raw back verbatim and may only read the phase.
type SessionState struct {
	Raw json.RawMessage
}

// Conversation phases reported by the reasoning service.
const (
	PhaseIntroComplete = "intro-complete"
	PhaseGathering     = "gathering"
	PhaseDone          = "done"
)

// Phase reads the conversation phase from the state token. It never writes.
// Returns an empty string when the token is absent or carries no phase.
func (s *SessionState) Phase() string {
	if s == nil || len(s.Raw) == 0 {
		return ""
	}
	var peek struct {
		Phase string `json:"phase"`
	}
	if err := json.Unmarshal(s.Raw, &peek); err != nil {
		return ""
	}
	return peek.Phase
}

// ToolCall is a structured action requested by the reasoning service.
// Args stays raw at this layer; the wizard decodes it into typed calls.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolDefinition describes a callable tool advertised to the service.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any // JSON-schema object
}

// DisplayProduct is one entry in a product-selection display payload.
type DisplayProduct struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Unit       string `json:"unit,omitempty"`
}

// DisplayItem is one entry in an items-added display payload.
type DisplayItem struct {
	Name           string  `json:"name"`
	Qty            float64 `json:"qty"`
	UnitPriceCents int64   `json:"unitPriceCents"`
}

// DisplayPayload is an optional structured payload rendered alongside the
// assistant's message.
type DisplayPayload struct {
	Kind     string           `json:"kind"` // "productList" or "itemsAdded"
	Products []DisplayProduct `json:"products,omitempty"`
	Items    []DisplayItem    `json:"items,omitempty"`
}

// SendRequest is one reasoning-service call.
type SendRequest struct {
	Messages []Message
	Tools    []ToolDefinition
	State    *SessionState
	Defaults *UserDefaults
}

// Reply is the reasoning service's answer to a SendRequest.
// ToolCalls may be empty; QuickReplies, Display, and State are optional.
type Reply struct {
	Message      string
	ToolCalls    []ToolCall
	QuickReplies []string
	Display      *DisplayPayload
	State        *SessionState
}

// Client sends the accumulated conversation to the reasoning service.
type Client interface {
	Send(ctx context.Context, req SendRequest) (*Reply, error)
}

// Config selects and configures a transport implementation.
type Config struct {
	Provider string // "chatapi" or "gemini"
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New builds a reasoning client for the configured provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "chatapi":
		return NewChatAPIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown reasoner provider %q", cfg.Provider)
	}
}
