package stream

import "strings"

// Tag markers some providers interleave inside the plain text channel
// instead of emitting separate thinking events. Matching is
// case-insensitive.
const (
	openTag  = "<thinking>"
	closeTag = "</thinking>"
)

// TagSplitter separates <thinking> spans from visible text across chunk
// boundaries. A trailing run that could be the start of the next expected
// tag is carried over instead of emitted; without that buffer a tag split
// mid-sentinel would leak into the output.
//
// Fragments must be fed strictly in order; the carryover buffer has no
// meaning otherwise.
type TagSplitter struct {
	inThinking bool
	carry      string
}

// InThinking reports whether the splitter is currently inside a thinking span.
func (t *TagSplitter) InThinking() bool { return t.inThinking }

// Feed consumes the next text fragment and returns the visible and thinking
// portions recovered so far.
func (t *TagSplitter) Feed(fragment string) (visible, thinking string) {
	buf := t.carry + fragment
	t.carry = ""

	for {
		target := openTag
		if t.inThinking {
			target = closeTag
		}

		idx := indexFold(buf, target)
		if idx < 0 {
			// Hold back a trailing run that could be the tag's start.
			if hold := tagPrefixStart(buf, target); hold >= 0 {
				t.emit(buf[:hold], &visible, &thinking)
				t.carry = buf[hold:]
				return visible, thinking
			}
			t.emit(buf, &visible, &thinking)
			return visible, thinking
		}

		t.emit(buf[:idx], &visible, &thinking)
		buf = buf[idx+len(target):]
		t.inThinking = !t.inThinking
	}
}

// Flush drains any held-back carryover, emitting it to the current mode.
// Call once at stream end; a dangling partial tag is plain text after all.
func (t *TagSplitter) Flush() (visible, thinking string) {
	t.emit(t.carry, &visible, &thinking)
	t.carry = ""
	return visible, thinking
}

func (t *TagSplitter) emit(s string, visible, thinking *string) {
	if s == "" {
		return
	}
	if t.inThinking {
		*thinking += s
	} else {
		*visible += s
	}
}

// tagPrefixStart returns the offset of a trailing run of buf that is a
// proper case-insensitive prefix of target (beginning at the tag sentinel
// '<'), or -1 when the tail cannot open the tag.
func tagPrefixStart(buf, target string) int {
	start := strings.LastIndexByte(buf, '<')
	if start < 0 {
		return -1
	}
	tail := buf[start:]
	if len(tail) >= len(target) {
		return -1
	}
	if strings.EqualFold(tail, target[:len(tail)]) {
		return start
	}
	return -1
}

// indexFold is a case-insensitive strings.Index for ASCII needles.
func indexFold(s, needle string) int {
	if len(needle) == 0 || len(s) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
