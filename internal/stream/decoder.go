// Package stream interprets provider streaming events and reassembles
// text, thinking text, and tool invocations from their fragments.
//
// DESIGN: Event kinds are an open enumeration probed with gjson; unknown
// kinds are ignored, never errors. Two delivery encodings must both work:
// incremental content-block deltas and a single consolidated message
// event, because providers emit either depending on message phase.
package stream

import (
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/ademiltonnunes/quill-project/internal/tools"
)

// Message is the final product of one decode operation.
type Message struct {
	Text      string
	Thinking  string
	ToolCalls []tools.Call
}

// Listener receives deltas as they are decoded, for live display.
// Either callback may be nil.
type Listener struct {
	OnText     func(string)
	OnThinking func(string)
}

// Decoder owns the transient per-request accumulation state. One decoder
// serves exactly one decode operation; fragments must be fed sequentially.
type Decoder struct {
	listener Listener
	splitter TagSplitter
	acc      *Accumulator
	text     string
	thinking string
}

// NewDecoder returns a decoder reporting deltas to listener.
func NewDecoder(listener Listener) *Decoder {
	return &Decoder{listener: listener, acc: NewAccumulator()}
}

// Feed decodes one SSE payload. Malformed JSON is skipped so a poison
// event cannot abort an otherwise healthy stream.
func (d *Decoder) Feed(payload []byte) {
	if !gjson.ValidBytes(payload) {
		log.Debug().Str("payload", clip(string(payload), 120)).Msg("skipping malformed stream event")
		return
	}
	evt := gjson.ParseBytes(payload)

	switch evt.Get("type").String() {
	case "content_block_start":
		block := evt.Get("content_block")
		if block.Get("type").String() == "tool_use" {
			d.acc.Start(indexOf(evt), block.Get("id").String(), block.Get("name").String())
		}

	case "content_block_delta":
		delta := evt.Get("delta")
		switch delta.Get("type").String() {
		case "text_delta":
			d.feedText(delta.Get("text").String())
		case "thinking_delta":
			d.appendThinking(delta.Get("thinking").String())
		case "input_json_delta":
			d.acc.Append(indexOf(evt), delta.Get("partial_json").String())
		}

	case "message":
		// Consolidated delivery: a finished content array in one event.
		d.feedWholeMessage(evt)
	}
}

// feedWholeMessage extracts finished blocks from a consolidated message
// event. Tool inputs arrive as JSON objects here; their raw form is kept
// as the argument string so downstream handling stays uniform.
func (d *Decoder) feedWholeMessage(evt gjson.Result) {
	for _, block := range evt.Get("content").Array() {
		switch block.Get("type").String() {
		case "text":
			d.feedText(block.Get("text").String())
		case "thinking":
			d.appendThinking(block.Get("thinking").String())
		case "tool_use":
			d.acc.StartComplete(
				block.Get("id").String(),
				block.Get("name").String(),
				block.Get("input").Raw,
			)
		}
	}
}

func (d *Decoder) feedText(fragment string) {
	visible, thinking := d.splitter.Feed(fragment)
	if visible != "" {
		d.text += visible
		if d.listener.OnText != nil {
			d.listener.OnText(visible)
		}
	}
	d.appendThinking(thinking)
}

func (d *Decoder) appendThinking(fragment string) {
	if fragment == "" {
		return
	}
	d.thinking += fragment
	if d.listener.OnThinking != nil {
		d.listener.OnThinking(fragment)
	}
}

// Finalize flushes the tag splitter's carryover and returns the completed
// message. The decoder must not be fed afterwards.
func (d *Decoder) Finalize() *Message {
	visible, thinking := d.splitter.Flush()
	if visible != "" {
		d.text += visible
		if d.listener.OnText != nil {
			d.listener.OnText(visible)
		}
	}
	d.appendThinking(thinking)

	return &Message{
		Text:      d.text,
		Thinking:  d.thinking,
		ToolCalls: d.acc.Finalize(),
	}
}

// indexOf extracts the content block index, or -1 when absent so the
// accumulator falls back to the most recent call.
func indexOf(evt gjson.Result) int {
	idx := evt.Get("index")
	if !idx.Exists() {
		return -1
	}
	return int(idx.Int())
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
