package tools

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ademiltonnunes/quill-project/internal/table"
)

func baseState() table.State {
	return table.NewState([]table.Row{
		{ID: "r1", Name: "Acme Invoice", Amount: 5, Status: table.StatusActive, Date: "2024-01-10", Category: "services"},
		{ID: "r2", Name: "Globex Retainer", Amount: 20, Status: table.StatusInactive, Date: "2024-02-15", Category: "software"},
		{ID: "r3", Name: "Initech License", Amount: 42, Status: table.StatusInactive, Date: "2024-03-20", Category: "software"},
		{ID: "r4", Name: "Wayne Consulting", Amount: 99, Status: table.StatusPending, Date: "2024-04-25", Category: "services"},
	}, 10)
}

func TestExecute_FilterTable(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"Amount","operator":">","value":"10"}`}, st)

	require.True(t, res.OK, res.Message)
	visible := res.State.VisibleRows()
	assert.Len(t, visible, 3)
	for _, r := range visible {
		assert.Greater(t, r.Amount, 10.0)
	}
}

func TestExecute_FilterAdditiveAcrossColumns(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"amount","operator":">","value":10}`}, st)
	require.True(t, res.OK)
	res = Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"category","operator":"==","value":"Software"}`}, res.State)
	require.True(t, res.OK)

	assert.Len(t, res.State.Filters, 2, "filters on different columns combine")
	assert.Equal(t, []string{"r2", "r3"}, ids(res.State.VisibleRows()))

	// Re-filtering an already filtered column replaces only that column's spec.
	res = Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"amount","operator":">","value":30}`}, res.State)
	require.True(t, res.OK)
	assert.Len(t, res.State.Filters, 2)
	assert.Equal(t, []string{"r3"}, ids(res.State.VisibleRows()))
}

func TestExecute_FilterDateBoundsMergeIntoRange(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":">=","value":"2024-02-01"}`}, st)
	require.True(t, res.OK)
	res = Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":"<=","value":"2024-03-31"}`}, res.State)
	require.True(t, res.OK)

	spec := res.State.Filters[table.ColumnDate]
	assert.Equal(t, table.OpRange, spec.Operator)
	assert.Equal(t, "2024-02-01", spec.MinValue)
	assert.Equal(t, "2024-03-31", spec.MaxValue)
	assert.Equal(t, []string{"r2", "r3"}, ids(res.State.VisibleRows()))
}

func TestExecute_FilterDateBoundsReversedOrderAlsoMerge(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":"<=","value":"2024-03-31"}`}, st)
	require.True(t, res.OK)
	res = Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":">=","value":"2024-02-01"}`}, res.State)
	require.True(t, res.OK)

	spec := res.State.Filters[table.ColumnDate]
	assert.Equal(t, table.OpRange, spec.Operator)
	assert.Equal(t, "2024-02-01", spec.MinValue)
}

func TestExecute_FilterDateBoundsOutOfOrderReplaceInstead(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":">=","value":"2024-06-01"}`}, st)
	require.True(t, res.OK)
	// min would exceed max; fall back to plain replacement.
	res = Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":"<=","value":"2024-01-01"}`}, res.State)
	require.True(t, res.OK)

	spec := res.State.Filters[table.ColumnDate]
	assert.Equal(t, table.OpLTE, spec.Operator)
}

func TestExecute_FilterValidation(t *testing.T) {
	st := baseState()
	tests := []struct {
		name string
		args string
		want string
	}{
		{"unknown column", `{"column":"price","operator":">","value":1}`, "price"},
		{"missing operator", `{"column":"amount","value":1}`, "operator"},
		{"bad operator", `{"column":"amount","operator":"~","value":1}`, "operator"},
		{"missing value", `{"column":"amount","operator":">"}`, "value"},
		{"null value", `{"column":"amount","operator":">","value":null}`, "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: tt.args}, st)
			assert.False(t, res.OK)
			assert.Contains(t, res.Message, tt.want)
			assert.Equal(t, st, res.State, "failed call must not change state")
		})
	}
}

func TestExecute_UnknownColumnErrorNamesValidSet(t *testing.T) {
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"nope","operator":">","value":1}`}, baseState())
	assert.False(t, res.OK)
	for _, col := range []string{"name", "amount", "status", "date", "category"} {
		assert.Contains(t, res.Message, col)
	}
}

func TestExecute_SortTable(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolSortTable, ArgumentsJSON: `{"column":"Amount","direction":"desc"}`}, st)
	require.True(t, res.OK)
	assert.Equal(t, []string{"r4", "r3", "r2", "r1"}, ids(res.State.VisibleRows()))

	// A second sort replaces the first; multi-column sort is unsupported.
	res = Execute(Call{Name: ToolSortTable, ArgumentsJSON: `{"column":"name","direction":"asc"}`}, res.State)
	require.True(t, res.OK)
	require.Len(t, res.State.Sort, 1)
	assert.Equal(t, table.ColumnName, res.State.Sort[0].Column)
}

func TestExecute_SortDirectionValidation(t *testing.T) {
	res := Execute(Call{Name: ToolSortTable, ArgumentsJSON: `{"column":"amount","direction":"down"}`}, baseState())
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "asc")
}

func TestExecute_AddRowThenDeleteRestores(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolAddRow, ArgumentsJSON: `{"name":"New Deal","amount":7.5,"status":"pending","date":"2024-05-01","category":"travel"}`}, st)
	require.True(t, res.OK, res.Message)
	require.Len(t, res.State.Rows, 5)

	added := res.State.Rows[4]
	assert.Equal(t, "New Deal", added.Name)
	assert.NotEmpty(t, added.ID)
	assert.Contains(t, res.Message, added.ID)

	res = Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: fmt.Sprintf(`{"rowId":%q}`, added.ID)}, res.State)
	require.True(t, res.OK)
	assert.Equal(t, ids(st.Rows), ids(res.State.Rows))
}

func TestExecute_AddRowIDsUniqueWithinBatch(t *testing.T) {
	st := baseState()
	args := `{"name":"Dup","amount":1,"status":"active","date":"2024-01-01","category":"office"}`
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		res := Execute(Call{Name: ToolAddRow, ArgumentsJSON: args}, st)
		require.True(t, res.OK)
		st = res.State
	}
	for _, r := range st.Rows {
		assert.False(t, seen[r.ID], "duplicate row id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestExecute_AddRowValidation(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"missing name", `{"amount":1,"status":"active","date":"2024-01-01","category":"x"}`},
		{"amount not a number", `{"name":"a","amount":"ten","status":"active","date":"2024-01-01","category":"x"}`},
		{"bad status", `{"name":"a","amount":1,"status":"archived","date":"2024-01-01","category":"x"}`},
		{"bad date format", `{"name":"a","amount":1,"status":"active","date":"01/01/2024","category":"x"}`},
		{"short date", `{"name":"a","amount":1,"status":"active","date":"2024-1-1","category":"x"}`},
		{"missing category", `{"name":"a","amount":1,"status":"active","date":"2024-01-01"}`},
	}
	st := baseState()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Execute(Call{Name: ToolAddRow, ArgumentsJSON: tt.args}, st)
			assert.False(t, res.OK)
			assert.Len(t, res.State.Rows, 4)
		})
	}
}

func TestExecute_DeleteByNameCaseInsensitive(t *testing.T) {
	res := Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: `{"name":"acme invoice"}`}, baseState())
	require.True(t, res.OK)
	assert.Equal(t, []string{"r2", "r3", "r4"}, ids(res.State.Rows))
}

func TestExecute_DeleteByColumnValueBulk(t *testing.T) {
	res := Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: `{"column":"status","value":"Inactive"}`}, baseState())
	require.True(t, res.OK)
	assert.Contains(t, res.Message, "2")
	assert.Equal(t, []string{"r1", "r4"}, ids(res.State.Rows))
}

func TestExecute_DeleteTargetingPriority(t *testing.T) {
	// rowId wins over name even when both are present.
	res := Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: `{"rowId":"r2","name":"Acme Invoice"}`}, baseState())
	require.True(t, res.OK)
	assert.Equal(t, []string{"r1", "r3", "r4"}, ids(res.State.Rows))
}

func TestExecute_DeleteNoMatch(t *testing.T) {
	st := baseState()
	tests := []struct {
		name string
		args string
		want string
	}{
		{"unknown id", `{"rowId":"ghost"}`, "ghost"},
		{"unknown name", `{"name":"Nobody"}`, "Nobody"},
		{"no value matches", `{"column":"category","value":"legal"}`, "legal"},
		{"no selector", `{}`, "rowId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: tt.args}, st)
			assert.False(t, res.OK)
			assert.Contains(t, res.Message, tt.want)
			assert.Equal(t, st, res.State)
		})
	}
}

func TestExecute_DeleteByDateComparesLiterally(t *testing.T) {
	// The date column matches literal strings; "2024-1-10" is not "2024-01-10".
	res := Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: `{"column":"date","value":"2024-1-10"}`}, baseState())
	assert.False(t, res.OK)

	res = Execute(Call{Name: ToolDeleteRow, ArgumentsJSON: `{"column":"date","value":"2024-01-10"}`}, baseState())
	require.True(t, res.OK)
	assert.Equal(t, []string{"r2", "r3", "r4"}, ids(res.State.Rows))
}

func TestExecute_ClearFiltersRestoresRowOrder(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":"amount","operator":">","value":10}`}, st)
	require.True(t, res.OK)
	res = Execute(Call{Name: ToolClearFilters}, res.State)
	require.True(t, res.OK)

	assert.Empty(t, res.State.Filters)
	assert.Equal(t, ids(st.Rows), ids(res.State.VisibleRows()))
}

func TestExecute_ClearSorting(t *testing.T) {
	res := Execute(Call{Name: ToolSortTable, ArgumentsJSON: `{"column":"amount","direction":"desc"}`}, baseState())
	require.True(t, res.OK)
	res = Execute(Call{Name: ToolClearSorting, ArgumentsJSON: ""}, res.State)
	require.True(t, res.OK)
	assert.Empty(t, res.State.Sort)
}

func TestExecute_UnknownTool(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: "doStuff", ArgumentsJSON: `{}`}, st)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "doStuff")
	assert.Equal(t, st, res.State)
}

func TestExecute_ArgumentParseError(t *testing.T) {
	st := baseState()
	res := Execute(Call{Name: ToolFilterTable, ArgumentsJSON: `{"column":`}, st)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "invalid arguments")
	assert.Equal(t, st, res.State)
}

func TestExecute_EmptyArgumentsDefaultToObject(t *testing.T) {
	res := Execute(Call{Name: ToolClearFilters, ArgumentsJSON: ""}, baseState())
	assert.True(t, res.OK)
}

func TestExecuteAll_SequentialFold(t *testing.T) {
	st := baseState()
	calls := []Call{
		{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":">=","value":"2024-02-01"}`},
		{Name: ToolFilterTable, ArgumentsJSON: `{"column":"date","operator":"<=","value":"2024-03-31"}`},
	}
	results, final := ExecuteAll(calls, st)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.True(t, results[1].OK)

	// The second call saw the first call's state, so the bounds merged.
	assert.Equal(t, table.OpRange, final.Filters[table.ColumnDate].Operator)
}

func TestDefinitions_CoverAllTools(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 6)
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
		assert.NotEmpty(t, d.Description)
		assert.Equal(t, "object", d.InputSchema["type"])
	}
	for _, want := range []string{ToolFilterTable, ToolSortTable, ToolAddRow, ToolDeleteRow, ToolClearFilters, ToolClearSorting} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func ids(rows []table.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}
