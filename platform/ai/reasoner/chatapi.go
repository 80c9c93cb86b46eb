package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ChatAPIClient speaks an OpenAI-compatible chat-completions dialect.
// The gateway we target extends the response with quick_replies, display,
// and session_state fields; session_state is echoed back on every request.
type ChatAPIClient struct {
	config Config
	client *http.Client
}

func NewChatAPIClient(cfg Config) *ChatAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moonshot.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "kimi-k2-turbo-preview"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ChatAPIClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function chatToolCallDetail `json:"function"`
}

type chatToolCallDetail struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatToolDef struct {
	Type     string          `json:"type"`
	Function chatToolDefFunc `json:"function"`
}

type chatToolDefFunc struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	QuickReplies []string        `json:"quick_replies"`
	Display      *DisplayPayload `json:"display"`
	SessionState json.RawMessage `json:"session_state"`
	Error        interface{}     `json:"error"`
}

// Send posts the transcript and decodes the reply, tool calls included.
func (c *ChatAPIClient) Send(ctx context.Context, req SendRequest) (*Reply, error) {
	payload := map[string]interface{}{
		"model":    c.config.Model,
		"messages": c.convertMessages(req.Messages),
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		payload["tools"] = tools
		payload["tool_choice"] = "auto"
	}
	if req.State != nil && len(req.State.Raw) > 0 {
		payload["session_state"] = req.State.Raw
	}
	if req.Defaults != nil {
		payload["user_defaults"] = req.Defaults
	}

	jsonBody, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode reasoner response: %v", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("reasoner api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("reasoner api error: empty choices")
	}

	choice := result.Choices[0].Message
	reply := &Reply{
		Message:      strings.TrimSpace(choice.Content),
		QuickReplies: result.QuickReplies,
		Display:      result.Display,
	}
	if len(result.SessionState) > 0 {
		reply.State = &SessionState{Raw: result.SessionState}
	}
	for _, tc := range choice.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			return nil, fmt.Errorf("reasoner returned invalid arguments for tool %q", tc.Function.Name)
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	return reply, nil
}

func (c *ChatAPIClient) convertMessages(messages []Message) []chatMessage {
	converted := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "assistant"
		}
		converted = append(converted, chatMessage{Role: role, Content: m.Content})
	}
	return converted
}

func (c *ChatAPIClient) convertTools(defs []ToolDefinition) []chatToolDef {
	if len(defs) == 0 {
		return nil
	}

	tools := make([]chatToolDef, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		tools = append(tools, chatToolDef{
			Type: "function",
			Function: chatToolDefFunc{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return tools
}
