// Filter predicate evaluation and the visible-row view.
//
// Comparison semantics:
//   - Relational operators coerce both sides to numbers; anything that does
//     not parse fails the predicate instead of raising.
//   - Equality compares numerically when both sides look numeric, otherwise
//     case-insensitively as strings.
//   - Substring operators lowercase both sides.
//   - The date column compares parsed calendar dates so "2024-2-1" and
//     "2024-02-01" order correctly where raw string comparison would not.
package table

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "2006-1-2"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return formatAmount(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Matches reports whether the given cell value satisfies spec.
// col selects date-aware comparison for the date column.
func Matches(cell string, col Column, spec FilterSpec) bool {
	switch spec.Operator {
	case OpGT, OpLT, OpGTE, OpLTE:
		if col == ColumnDate {
			return matchDateRelational(cell, spec)
		}
		left, okL := toNumber(cell)
		right, okR := toNumber(spec.Value)
		if !okL || !okR {
			return false
		}
		switch spec.Operator {
		case OpGT:
			return left > right
		case OpLT:
			return left < right
		case OpGTE:
			return left >= right
		default:
			return left <= right
		}

	case OpEQ, OpNEQ:
		eq := looseEqual(cell, spec.Value)
		if spec.Operator == OpEQ {
			return eq
		}
		return !eq

	case OpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(toText(spec.Value)))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(cell), strings.ToLower(toText(spec.Value)))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(cell), strings.ToLower(toText(spec.Value)))

	case OpRange:
		cellDate, ok := parseDate(cell)
		if !ok {
			return false
		}
		min, okMin := parseDate(toText(spec.MinValue))
		max, okMax := parseDate(toText(spec.MaxValue))
		if !okMin || !okMax {
			return false
		}
		return !cellDate.Before(min) && !cellDate.After(max)
	}
	return false
}

func matchDateRelational(cell string, spec FilterSpec) bool {
	left, okL := parseDate(cell)
	right, okR := parseDate(toText(spec.Value))
	if !okL || !okR {
		return false
	}
	switch spec.Operator {
	case OpGT:
		return left.After(right)
	case OpLT:
		return left.Before(right)
	case OpGTE:
		return !left.Before(right)
	default:
		return !left.After(right)
	}
}

// DateOrdered reports whether a and b both parse as calendar dates and
// a does not come after b.
func DateOrdered(a, b any) bool {
	ad, okA := parseDate(toText(a))
	bd, okB := parseDate(toText(b))
	return okA && okB && !ad.After(bd)
}

func looseEqual(cell string, value any) bool {
	if ln, okL := toNumber(cell); okL {
		if rn, okR := toNumber(value); okR {
			return ln == rn
		}
	}
	return strings.EqualFold(cell, toText(value))
}

// VisibleRows applies the current filters and sorting to the stored row
// sequence and returns the result. The stored sequence is never modified.
func (s State) VisibleRows() []Row {
	visible := make([]Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		if s.rowVisible(r) {
			visible = append(visible, r)
		}
	}
	s.sortRows(visible)
	return visible
}

// PageRows returns the current pagination window over VisibleRows.
func (s State) PageRows() []Row {
	visible := s.VisibleRows()
	if s.Page.PageSize <= 0 {
		return visible
	}
	start := s.Page.PageIndex * s.Page.PageSize
	if start >= len(visible) {
		return nil
	}
	end := start + s.Page.PageSize
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end]
}

func (s State) rowVisible(r Row) bool {
	for col, spec := range s.Filters {
		if !Matches(r.Cell(col), col, spec) {
			return false
		}
	}
	return true
}

func (s State) sortRows(rows []Row) {
	if len(s.Sort) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range s.Sort {
			c := compareCells(rows[i].Cell(key.Column), rows[j].Cell(key.Column), key.Column)
			if c == 0 {
				continue
			}
			if key.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareCells orders two cell values for sorting: numeric for the amount
// column, calendar for the date column, case-insensitive lexicographic
// otherwise.
func compareCells(a, b string, col Column) int {
	switch col {
	case ColumnAmount:
		an, okA := toNumber(a)
		bn, okB := toNumber(b)
		if okA && okB {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
	case ColumnDate:
		ad, okA := parseDate(a)
		bd, okB := parseDate(b)
		if okA && okB {
			switch {
			case ad.Before(bd):
				return -1
			case ad.After(bd):
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
