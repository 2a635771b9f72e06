// Package provider abstracts the upstream model vendors behind a small
// capability interface selected by configuration.
//
// Only the anthropic provider is implemented; openai and gemini are
// registered placeholders so configuration errors surface at startup
// rather than mid-conversation.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ademiltonnunes/quill-project/internal/config"
	"github.com/ademiltonnunes/quill-project/internal/stream"
	"github.com/ademiltonnunes/quill-project/internal/tools"
)

// ErrTransport marks network and stream-setup failures. These surface to
// the user as connectivity problems; everything tool-level stays inside
// the conversation.
var ErrTransport = errors.New("provider transport failure")

// ErrNotSupported is returned by placeholder providers.
var ErrNotSupported = errors.New("provider not supported")

// Message is the neutral conversation shape exchanged with providers.
type Message struct {
	Role       string       `json:"role"` // user | assistant | tool
	Content    string       `json:"content"`
	ToolCalls  []tools.Call `json:"toolCalls,omitempty"`
	ToolCallID string       `json:"toolCallId,omitempty"`
	ToolError  bool         `json:"toolError,omitempty"`
}

// Request is one round-trip to the model.
type Request struct {
	System   string
	Messages []Message
	Tools    []tools.Definition
}

// Provider streams one assistant message for a request. Deltas are
// reported through listener while the stream is live; the returned
// message is the finalized whole.
type Provider interface {
	ID() string
	StreamMessage(ctx context.Context, req *Request, listener stream.Listener) (*stream.Message, error)
}

// New selects a provider implementation from configuration.
func New(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case "anthropic":
		return NewAnthropic(cfg), nil
	case "openai", "gemini":
		return placeholder{id: cfg.Name}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q (supported: anthropic, openai, gemini)", cfg.Name)
	}
}

type placeholder struct {
	id string
}

func (p placeholder) ID() string { return p.id }

func (p placeholder) StreamMessage(context.Context, *Request, stream.Listener) (*stream.Message, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotSupported, p.id)
}
