package tools

// Definition is one tool advertised to the model, with a JSON-Schema shaped
// input_schema matching what Execute validates.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Definitions returns the six table tools in a stable order.
func Definitions() []Definition {
	columnEnum := []string{"name", "amount", "status", "date", "category"}

	return []Definition{
		{
			Name:        ToolFilterTable,
			Description: "Filter the table by one column. Filters on different columns combine; filtering an already-filtered column replaces that column's filter.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"column":   map[string]any{"type": "string", "enum": columnEnum},
					"operator": map[string]any{"type": "string", "enum": []string{">", "<", ">=", "<=", "==", "!=", "contains", "startsWith", "endsWith"}},
					"value":    map[string]any{"description": "Comparison value (string or number)."},
				},
				"required": []string{"column", "operator", "value"},
			},
		},
		{
			Name:        ToolSortTable,
			Description: "Sort the table by one column, replacing any previous sort.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"column":    map[string]any{"type": "string", "enum": columnEnum},
					"direction": map[string]any{"type": "string", "enum": []string{"asc", "desc"}},
				},
				"required": []string{"column", "direction"},
			},
		},
		{
			Name:        ToolAddRow,
			Description: "Add a new row to the table.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"amount":   map[string]any{"type": "number"},
					"status":   map[string]any{"type": "string", "enum": []string{"active", "inactive", "pending"}},
					"date":     map[string]any{"type": "string", "description": "ISO date, YYYY-MM-DD."},
					"category": map[string]any{"type": "string"},
				},
				"required": []string{"name", "amount", "status", "date", "category"},
			},
		},
		{
			Name:        ToolDeleteRow,
			Description: "Delete rows. Target by rowId (exact), name (case-insensitive), or column+value (deletes every match).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"rowId":  map[string]any{"type": "string"},
					"name":   map[string]any{"type": "string"},
					"column": map[string]any{"type": "string", "enum": columnEnum},
					"value":  map[string]any{"description": "Match value when targeting by column."},
				},
			},
		},
		{
			Name:        ToolClearFilters,
			Description: "Remove all column filters.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        ToolClearSorting,
			Description: "Remove the current sort order.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}
