// Package tools executes decoded tool invocations against table state.
//
// DESIGN: Execute is pure. It never mutates the input state and never lets
// a panic escape; every failure path returns {OK: false, input state}.
// Validation runs to completion before any state is derived, so a partially
// invalid call cannot partially apply.
package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ademiltonnunes/quill-project/internal/table"
)

// Call is a complete tool invocation reassembled from the stream.
type Call struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments"`
}

// Result is the outcome of applying one Call.
type Result struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	State   table.State `json:"-"`
}

// Tool names understood by the engine.
const (
	ToolFilterTable  = "filterTable"
	ToolSortTable    = "sortTable"
	ToolAddRow       = "addRow"
	ToolDeleteRow    = "deleteRow"
	ToolClearFilters = "clearFilters"
	ToolClearSorting = "clearSorting"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Execute applies call to st and returns the result. Failures carry the
// input state unchanged so the caller can keep folding subsequent calls.
func Execute(call Call, st table.State) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", call.Name).Interface("panic", r).Msg("tool execution panicked")
			res = fail(st, "internal error executing tool %s", call.Name)
		}
	}()

	args, err := parseArguments(call.ArgumentsJSON)
	if err != nil {
		return fail(st, "invalid arguments for tool %s: %v", call.Name, err)
	}

	switch call.Name {
	case ToolFilterTable:
		return execFilter(args, st)
	case ToolSortTable:
		return execSort(args, st)
	case ToolAddRow:
		return execAddRow(args, st)
	case ToolDeleteRow:
		return execDeleteRow(args, st)
	case ToolClearFilters:
		return Result{OK: true, Message: "Cleared all filters", State: st.WithoutFilters()}
	case ToolClearSorting:
		return Result{OK: true, Message: "Cleared sorting", State: st.WithoutSort()}
	}
	return fail(st, "unknown tool: %s", call.Name)
}

// ExecuteAll folds calls through Execute sequentially. Each call sees the
// state produced by the previous one; later calls may depend on it.
func ExecuteAll(calls []Call, st table.State) ([]Result, table.State) {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		r := Execute(call, st)
		st = r.State
		results = append(results, r)
	}
	return results, st
}

func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

func fail(st table.State, format string, a ...any) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, a...), State: st}
}

func columnList() string {
	names := make([]string, 0, 5)
	for _, c := range table.Columns() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func requireString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// scalar accepts string, number or bool; null and composites are rejected.
func requireScalar(args map[string]any, key string) (any, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, false
	}
	switch v.(type) {
	case string, float64, bool:
		return v, true
	}
	return nil, false
}

func execFilter(args map[string]any, st table.State) Result {
	rawCol, ok := requireString(args, "column")
	if !ok {
		return fail(st, "filterTable requires a column (one of: %s)", columnList())
	}
	col, ok := table.ParseColumn(rawCol)
	if !ok {
		return fail(st, "unknown column %q (valid columns: %s)", rawCol, columnList())
	}
	op, ok := requireString(args, "operator")
	if !ok || !table.ValidOperator(op) {
		return fail(st, "filterTable requires a valid operator (>, <, >=, <=, ==, !=, contains, startsWith, endsWith)")
	}
	value, ok := requireScalar(args, "value")
	if !ok {
		return fail(st, "filterTable requires a value")
	}

	spec := table.FilterSpec{Operator: table.Operator(op), Value: value}

	// Complementary bounds on the date column merge into one inclusive
	// range instead of the second bound overwriting the first.
	if col == table.ColumnDate {
		if merged, ok := mergeDateBounds(st.Filters[col], spec); ok {
			return Result{
				OK:      true,
				Message: fmt.Sprintf("Filtered %s between %v and %v", col, merged.MinValue, merged.MaxValue),
				State:   st.WithFilter(col, merged),
			}
		}
	}

	return Result{
		OK:      true,
		Message: fmt.Sprintf("Filtered %s %s %v", col, op, value),
		State:   st.WithFilter(col, spec),
	}
}

// mergeDateBounds combines an existing >= or <= date filter with the
// complementary incoming bound, provided both parse and min <= max.
func mergeDateBounds(existing, incoming table.FilterSpec) (table.FilterSpec, bool) {
	var minV, maxV any
	switch {
	case existing.Operator == table.OpGTE && incoming.Operator == table.OpLTE:
		minV, maxV = existing.Value, incoming.Value
	case existing.Operator == table.OpLTE && incoming.Operator == table.OpGTE:
		minV, maxV = incoming.Value, existing.Value
	default:
		return table.FilterSpec{}, false
	}
	if !table.DateOrdered(minV, maxV) {
		return table.FilterSpec{}, false
	}
	return table.FilterSpec{Operator: table.OpRange, MinValue: minV, MaxValue: maxV}, true
}

func execSort(args map[string]any, st table.State) Result {
	rawCol, ok := requireString(args, "column")
	if !ok {
		return fail(st, "sortTable requires a column (one of: %s)", columnList())
	}
	col, ok := table.ParseColumn(rawCol)
	if !ok {
		return fail(st, "unknown column %q (valid columns: %s)", rawCol, columnList())
	}
	direction, ok := requireString(args, "direction")
	if !ok || (direction != "asc" && direction != "desc") {
		return fail(st, `sortTable direction must be "asc" or "desc"`)
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Sorted by %s %s", col, direction),
		State:   st.WithSort(table.SortKey{Column: col, Descending: direction == "desc"}),
	}
}

func execAddRow(args map[string]any, st table.State) Result {
	name, ok := requireString(args, "name")
	if !ok || name == "" {
		return fail(st, "addRow requires a name")
	}
	amountV, ok := args["amount"]
	if !ok {
		return fail(st, "addRow requires an amount")
	}
	amount, ok := amountV.(float64)
	if !ok {
		return fail(st, "addRow amount must be a number")
	}
	status, ok := requireString(args, "status")
	if !ok || !table.ValidStatus(status) {
		return fail(st, `addRow status must be one of "active", "inactive", "pending"`)
	}
	date, ok := requireString(args, "date")
	if !ok || !dateRe.MatchString(date) {
		return fail(st, "addRow date must match YYYY-MM-DD")
	}
	category, ok := requireString(args, "category")
	if !ok || category == "" {
		return fail(st, "addRow requires a category")
	}

	row := table.Row{
		ID:       table.NewRowID(),
		Name:     name,
		Amount:   amount,
		Status:   table.Status(status),
		Date:     date,
		Category: category,
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Added row %q (id %s)", name, row.ID),
		State:   st.WithRow(row),
	}
}

func execDeleteRow(args map[string]any, st table.State) Result {
	// Targeting priority: rowId, then name, then column+value.
	if rowID, ok := requireString(args, "rowId"); ok && rowID != "" {
		next, removed := st.WithoutRows(func(r table.Row) bool { return r.ID == rowID })
		if removed == 0 {
			return fail(st, "no row found with id %q", rowID)
		}
		return Result{OK: true, Message: fmt.Sprintf("Deleted row %s", rowID), State: next}
	}

	if name, ok := requireString(args, "name"); ok && name != "" {
		next, removed := st.WithoutRows(func(r table.Row) bool { return strings.EqualFold(r.Name, name) })
		if removed == 0 {
			return fail(st, "no row found with name %q", name)
		}
		return Result{OK: true, Message: fmt.Sprintf("Deleted %d row(s) named %q", removed, name), State: next}
	}

	rawCol, okCol := requireString(args, "column")
	value, okVal := requireScalar(args, "value")
	if okCol && okVal {
		col, ok := table.ParseColumn(rawCol)
		if !ok {
			return fail(st, "unknown column %q (valid columns: %s)", rawCol, columnList())
		}
		want := valueText(value)
		next, removed := st.WithoutRows(func(r table.Row) bool {
			cell := r.Cell(col)
			if col == table.ColumnDate {
				return cell == want
			}
			return strings.EqualFold(cell, want)
		})
		if removed == 0 {
			return fail(st, "no rows matched %s == %q", col, want)
		}
		return Result{OK: true, Message: fmt.Sprintf("Deleted %d row(s) where %s matches %q", removed, col, want), State: next}
	}

	return fail(st, "deleteRow requires rowId, name, or column+value")
}

func valueText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
