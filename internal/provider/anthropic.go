package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/ademiltonnunes/quill-project/internal/config"
	"github.com/ademiltonnunes/quill-project/internal/sse"
	"github.com/ademiltonnunes/quill-project/internal/stream"
)

const (
	anthropicVersion = "2023-06-01"

	// maxErrorBodyLen limits error bodies embedded in error messages.
	maxErrorBodyLen = 500
)

// Anthropic implements Provider against the Anthropic Messages API.
type Anthropic struct {
	cfg    config.ProviderConfig
	client *http.Client
}

// NewAnthropic creates the anthropic provider. The HTTP client has no
// client-level timeout; per-request deadlines come from the context so a
// long-lived stream is not cut off mid-message.
func NewAnthropic(cfg config.ProviderConfig) *Anthropic {
	return &Anthropic{cfg: cfg, client: &http.Client{}}
}

func (a *Anthropic) ID() string { return "anthropic" }

// Wire types for the Messages API request.

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthropicBlock
}

type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// StreamMessage sends req and decodes the SSE response into a finalized
// message. Transport and setup failures are wrapped in ErrTransport;
// cancellation passes through as ctx.Err().
func (a *Anthropic) StreamMessage(ctx context.Context, req *Request, listener stream.Listener) (*stream.Message, error) {
	body, err := a.buildBody(req)
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return nil, fmt.Errorf("%w: anthropic returned status %d: %s", ErrTransport, resp.StatusCode, string(errBody))
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("%w: anthropic response has no body", ErrTransport)
	}

	// Unstick a blocked read when the context is cancelled: closing the
	// body is the only way to release the reader deterministically.
	watchdog := make(chan struct{})
	defer close(watchdog)
	go func() {
		select {
		case <-ctx.Done():
			resp.Body.Close()
		case <-watchdog:
		}
	}()

	decoder := stream.NewDecoder(listener)
	scanner := sse.NewScanner(resp.Body)
	for {
		payload, err := scanner.Next(ctx)
		if err != nil {
			if err == io.EOF || errors.Is(err, sse.ErrDone) {
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: reading stream: %v", ErrTransport, err)
		}
		decoder.Feed(payload)
	}

	msg := decoder.Finalize()
	log.Debug().
		Int("text_len", len(msg.Text)).
		Int("thinking_len", len(msg.Thinking)).
		Int("tool_calls", len(msg.ToolCalls)).
		Msg("anthropic stream finalized")
	return msg, nil
}

// buildBody marshals the request and forces "stream": true on the wire
// regardless of what the typed struct carries.
func (a *Anthropic) buildBody(req *Request) ([]byte, error) {
	wire := anthropicRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    req.System,
		Messages:  make([]anthropicMessage, 0, len(req.Messages)),
		Tools:     make([]anthropicTool, 0, len(req.Tools)),
	}

	for _, def := range req.Tools {
		wire.Tools = append(wire.Tools, anthropicTool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	for _, m := range req.Messages {
		converted, err := convertMessage(m)
		if err != nil {
			return nil, err
		}
		wire.Messages = append(wire.Messages, converted)
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "stream", true)
}

// convertMessage maps the neutral conversation shape onto Anthropic
// content blocks. Tool results ride in a user message; assistant tool
// calls become tool_use blocks with their raw argument JSON as input.
func convertMessage(m Message) (anthropicMessage, error) {
	switch m.Role {
	case "tool":
		return anthropicMessage{
			Role: "user",
			Content: []anthropicBlock{{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
				IsError:   m.ToolError,
			}},
		}, nil

	case "assistant":
		if len(m.ToolCalls) == 0 {
			return anthropicMessage{Role: "assistant", Content: m.Content}, nil
		}
		blocks := make([]anthropicBlock, 0, len(m.ToolCalls)+1)
		if m.Content != "" {
			blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Content})
		}
		for _, call := range m.ToolCalls {
			input := call.ArgumentsJSON
			if !json.Valid([]byte(input)) {
				input = "{}"
			}
			blocks = append(blocks, anthropicBlock{
				Type:  "tool_use",
				ID:    call.ID,
				Name:  call.Name,
				Input: json.RawMessage(input),
			})
		}
		return anthropicMessage{Role: "assistant", Content: blocks}, nil

	case "user":
		return anthropicMessage{Role: "user", Content: m.Content}, nil
	}
	return anthropicMessage{}, fmt.Errorf("unsupported message role: %q", m.Role)
}
