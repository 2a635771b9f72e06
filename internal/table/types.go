// Package table holds the in-memory tabular dataset and its view semantics.
//
// DESIGN: State is a persistent value. Every mutation helper returns a new
// State with copied containers, never touching the receiver. Filters and
// sorting are view concerns: they decide visibility and display order but
// never reorder or drop rows from the stored sequence.
package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the fixed enumeration for the status column.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

// ValidStatus reports whether s is one of the three known status values.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

// Row is a single table record. Rows are immutable once created; the only
// mutations are whole-row insertion and deletion.
type Row struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Status   Status  `json:"status"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Category string  `json:"category"`
}

// Column identifies one of the five data columns.
type Column string

const (
	ColumnName     Column = "name"
	ColumnAmount   Column = "amount"
	ColumnStatus   Column = "status"
	ColumnDate     Column = "date"
	ColumnCategory Column = "category"
)

// Columns returns the known data columns in display order.
func Columns() []Column {
	return []Column{ColumnName, ColumnAmount, ColumnStatus, ColumnDate, ColumnCategory}
}

// ParseColumn normalizes a user/model supplied column name (trim + lowercase)
// and reports whether it names a known column.
func ParseColumn(s string) (Column, bool) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Columns() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpGT         Operator = ">"
	OpLT         Operator = "<"
	OpGTE        Operator = ">="
	OpLTE        Operator = "<="
	OpEQ         Operator = "=="
	OpNEQ        Operator = "!="
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"

	// OpRange is never supplied by a tool call directly; it is produced by
	// merging complementary >= and <= bounds on the date column.
	OpRange Operator = "range"
)

// ValidOperator reports whether op is accepted from a filterTable call.
func ValidOperator(op string) bool {
	switch Operator(op) {
	case OpGT, OpLT, OpGTE, OpLTE, OpEQ, OpNEQ, OpContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// FilterSpec is the stored criteria for one column.
type FilterSpec struct {
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	MinValue any      `json:"minValue,omitempty"`
	MaxValue any      `json:"maxValue,omitempty"`
}

// SortKey is one sort instruction. Only single-key sorts are produced by
// tool execution, but the state keeps a sequence for forward compatibility.
type SortKey struct {
	Column     Column `json:"column"`
	Descending bool   `json:"descending"`
}

// Pagination is the current page window over the visible rows.
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// State is the full table state. Treat as immutable: use the With* helpers.
type State struct {
	Rows    []Row                 `json:"rows"`
	Sort    []SortKey             `json:"sort"`
	Filters map[Column]FilterSpec `json:"filters"`
	Page    Pagination            `json:"page"`
}

// NewState builds a State over the given rows with no filters or sorting.
func NewState(rows []Row, pageSize int) State {
	return State{
		Rows:    append([]Row(nil), rows...),
		Filters: map[Column]FilterSpec{},
		Page:    Pagination{PageIndex: 0, PageSize: pageSize},
	}
}

func (s State) clone() State {
	next := State{
		Rows:    append([]Row(nil), s.Rows...),
		Sort:    append([]SortKey(nil), s.Sort...),
		Filters: make(map[Column]FilterSpec, len(s.Filters)),
		Page:    s.Page,
	}
	for c, f := range s.Filters {
		next.Filters[c] = f
	}
	return next
}

// WithFilter returns a copy of s with the filter for col replaced.
// Filters on other columns are untouched.
func (s State) WithFilter(col Column, spec FilterSpec) State {
	next := s.clone()
	next.Filters[col] = spec
	return next
}

// WithoutFilters returns a copy of s with an empty filter map.
func (s State) WithoutFilters() State {
	next := s.clone()
	next.Filters = map[Column]FilterSpec{}
	return next
}

// WithSort returns a copy of s sorted by the single given key.
func (s State) WithSort(key SortKey) State {
	next := s.clone()
	next.Sort = []SortKey{key}
	return next
}

// WithoutSort returns a copy of s with sorting cleared.
func (s State) WithoutSort() State {
	next := s.clone()
	next.Sort = nil
	return next
}

// WithRow returns a copy of s with row appended at the end of the stored
// sequence. Insertion order is preserved; sorting remains a view concern.
func (s State) WithRow(row Row) State {
	next := s.clone()
	next.Rows = append(next.Rows, row)
	return next
}

// WithoutRows returns a copy of s with every row matching remove deleted,
// along with the number of rows removed.
func (s State) WithoutRows(remove func(Row) bool) (State, int) {
	next := s.clone()
	kept := next.Rows[:0]
	removed := 0
	for _, r := range next.Rows {
		if remove(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	next.Rows = kept
	return next, removed
}

// Cell returns the string form of the given column's value.
func (r Row) Cell(col Column) string {
	switch col {
	case ColumnName:
		return r.Name
	case ColumnAmount:
		return formatAmount(r.Amount)
	case ColumnStatus:
		return string(r.Status)
	case ColumnDate:
		return r.Date
	case ColumnCategory:
		return r.Category
	}
	return ""
}

// NewRowID generates a fresh row identifier. The uuid suffix keeps ids
// collision-free even when several rows are inserted within the same
// millisecond during one tool batch.
func NewRowID() string {
	return fmt.Sprintf("row-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
