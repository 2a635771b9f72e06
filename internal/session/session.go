// Package session owns one conversation: its message history, the current
// table state, and the turn loop that folds tool calls into that state.
//
// DESIGN: Last-writer-wins. Sending a new message cancels the in-flight
// turn; the cancelled turn's callbacks become no-ops and its results are
// discarded instead of racing the newer turn's commit. Cancellation is
// silent, never an error the user sees.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ademiltonnunes/quill-project/internal/monitoring"
	"github.com/ademiltonnunes/quill-project/internal/provider"
	"github.com/ademiltonnunes/quill-project/internal/stream"
	"github.com/ademiltonnunes/quill-project/internal/table"
	"github.com/ademiltonnunes/quill-project/internal/tools"
)

// maxToolRounds bounds provider round-trips within one user turn so a
// model stuck re-issuing tools cannot loop forever.
const maxToolRounds = 8

const systemPrompt = `You are a data assistant managing a table with columns: name, amount, status, date, category.
Use the provided tools to filter, sort, add and delete rows when the user asks for table changes.
Answer questions about the data in plain text. Dates are ISO YYYY-MM-DD.`

// Sink receives live output from a turn. Any method may be called from
// the turn's goroutine; implementations decide how to forward it.
type Sink interface {
	Text(delta string)
	Thinking(delta string)
	ToolResult(call tools.Call, result tools.Result)
}

// Recorder persists conversation records (not table data). Implemented by
// the transcript store; may be nil.
type Recorder interface {
	RecordMessage(ctx context.Context, sessionID, role, content string) error
	RecordToolExecution(ctx context.Context, sessionID string, call tools.Call, ok bool, message string) error
}

// TurnResult is the committed outcome of one user turn.
type TurnResult struct {
	Reply       string
	Thinking    string
	ToolResults []tools.Result
	State       table.State
}

// Session is one logical conversation over one table.
type Session struct {
	ID string

	prov     provider.Provider
	recorder Recorder

	mu         sync.Mutex
	state      table.State
	history    []provider.Message
	cancelTurn context.CancelFunc
	gen        int

	// Expand/collapse display state for thinking blocks, keyed by message
	// id. Owned here so nothing leaks across sessions in a hosted setup.
	expanded map[string]bool
}

// New creates a session seeded with the given table state.
func New(prov provider.Provider, initial table.State, recorder Recorder) *Session {
	return &Session{
		ID:       uuid.NewString(),
		prov:     prov,
		recorder: recorder,
		state:    initial,
		expanded: make(map[string]bool),
	}
}

// State returns the current table state value.
func (s *Session) State() table.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset replaces the table state and clears conversation history.
func (s *Session) Reset(st table.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.gen++
	s.state = st
	s.history = nil
	s.expanded = make(map[string]bool)
}

// ToggleExpanded flips the expand/collapse state for a display block.
func (s *Session) ToggleExpanded(blockID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[blockID] = !s.expanded[blockID]
	return s.expanded[blockID]
}

// Send runs one user turn: stream the assistant reply, execute any tool
// calls sequentially (each call sees the previous call's state), feed
// results back to the model, and repeat until a round produces no calls.
// A context.Canceled return means a newer message superseded this turn.
func (s *Session) Send(ctx context.Context, userText string, sink Sink) (*TurnResult, error) {
	s.mu.Lock()
	if s.cancelTurn != nil {
		s.cancelTurn()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelTurn = cancel
	s.gen++
	gen := s.gen

	// The turn works on snapshots and commits only if still current.
	state := s.state
	history := append([]provider.Message(nil), s.history...)
	s.mu.Unlock()

	defer cancel()

	history = append(history, provider.Message{Role: "user", Content: userText})
	s.record(ctx, "user", userText)

	turn := &TurnResult{State: state}
	listener := s.listenerFor(ctx, sink)

	for round := 0; round < maxToolRounds; round++ {
		msg, err := s.prov.StreamMessage(ctx, &provider.Request{
			System:   systemPrompt,
			Messages: history,
			Tools:    tools.Definitions(),
		}, listener)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil, context.Canceled
			}
			monitoring.Metrics.RecordProviderError()
			monitoring.Metrics.RecordTurn(false)
			return nil, err
		}

		turn.Reply += msg.Text
		turn.Thinking += msg.Thinking
		history = append(history, provider.Message{
			Role:      "assistant",
			Content:   msg.Text,
			ToolCalls: msg.ToolCalls,
		})
		s.record(ctx, "assistant", msg.Text)

		if len(msg.ToolCalls) == 0 {
			break
		}

		for _, call := range msg.ToolCalls {
			result := tools.Execute(call, state)
			state = result.State
			monitoring.Metrics.RecordToolRun(result.OK)
			turn.ToolResults = append(turn.ToolResults, result)

			content := result.Message
			if !result.OK {
				content = fmt.Sprintf("Error: %s", result.Message)
			}
			history = append(history, provider.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: call.ID,
				ToolError:  !result.OK,
			})
			s.recordTool(ctx, call, result)

			if ctx.Err() == nil && sink != nil {
				sink.ToolResult(call, result)
			}
		}
	}

	if ctx.Err() != nil {
		return nil, context.Canceled
	}

	// Commit only if no newer turn started while this one ran.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, context.Canceled
	}
	s.state = state
	s.history = history
	s.cancelTurn = nil
	turn.State = state
	monitoring.Metrics.RecordTurn(true)
	return turn, nil
}

// listenerFor wraps sink callbacks so they become no-ops once the turn is
// cancelled; a superseded turn must not keep painting output.
func (s *Session) listenerFor(ctx context.Context, sink Sink) stream.Listener {
	if sink == nil {
		return stream.Listener{}
	}
	return stream.Listener{
		OnText: func(delta string) {
			if ctx.Err() == nil {
				sink.Text(delta)
			}
		},
		OnThinking: func(delta string) {
			if ctx.Err() == nil {
				sink.Thinking(delta)
			}
		},
	}
}

func (s *Session) record(ctx context.Context, role, content string) {
	if s.recorder == nil || content == "" {
		return
	}
	if err := s.recorder.RecordMessage(ctx, s.ID, role, content); err != nil {
		log.Warn().Err(err).Msg("transcript message record failed")
	}
}

func (s *Session) recordTool(ctx context.Context, call tools.Call, result tools.Result) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordToolExecution(ctx, s.ID, call, result.OK, result.Message); err != nil {
		log.Warn().Err(err).Msg("transcript tool record failed")
	}
}
