// Package sse decodes a Server-Sent-Events byte stream into discrete
// data payloads, independent of payload semantics.
//
// DESIGN: The scanner owns line reassembly. Read boundaries never align
// with logical lines, so partial trailing lines are buffered by the
// underlying bufio.Reader until their newline arrives. Cancellation is
// checked before each read; when the source is an http response body the
// caller is expected to close it on cancel so a blocked read unsticks.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrDone signals the logical end of the stream ("data: [DONE]"),
// distinct from transport EOF.
var ErrDone = errors.New("sse: stream done")

const dataPrefix = "data:"

// Scanner yields SSE data payloads one at a time.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner wraps r in a Scanner.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next returns the payload of the next "data:" line. Lines without the
// data prefix (comments, event names, blanks) are skipped; they are part
// of the protocol, not errors. Returns ErrDone on the [DONE] sentinel,
// io.EOF at transport end, or ctx.Err() once the context is cancelled.
func (s *Scanner) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line != "" {
				// Final line without trailing newline still counts.
				if payload, ok := payloadOf(line); ok {
					if done := s.classifyDone(payload); done != nil {
						return nil, done
					}
					return payload, nil
				}
			}
			if err == io.EOF {
				return nil, io.EOF
			}
			if ctx.Err() != nil {
				// A read interrupted by body close on cancel reports as a
				// transport error; surface the cancellation instead.
				return nil, ctx.Err()
			}
			return nil, err
		}

		payload, ok := payloadOf(line)
		if !ok {
			continue
		}
		if done := s.classifyDone(payload); done != nil {
			return nil, done
		}
		return payload, nil
	}
}

func (s *Scanner) classifyDone(payload []byte) error {
	if bytes.Equal(bytes.TrimSpace(payload), []byte("[DONE]")) {
		return ErrDone
	}
	return nil
}

func payloadOf(line string) ([]byte, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	payload := strings.TrimPrefix(line, dataPrefix)
	payload = strings.TrimPrefix(payload, " ")
	if payload == "" {
		return nil, false
	}
	return []byte(payload), true
}
