package recipe

// JSONSchema returns the draft-07 JSON schema describing the expected
// extraction output. It is sent to the LLM as a structured-output
// constraint and mirrors the rules enforced by Validate.
func JSONSchema() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Recipe title",
				"minLength":   1,
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Brief description of the recipe",
			},
			"servings": map[string]any{
				"type":        "integer",
				"description": "Number of servings",
				"minimum":     1,
				"default":     1,
			},
			"keywords": map[string]any{
				"type":        "string",
				"description": "Comma-separated keywords for categorization and search",
			},
			"prep_time_minutes": map[string]any{
				"type":        []any{"integer", "null"},
				"description": "Time to prepare ingredients in minutes",
				"minimum":     0,
			},
			"wait_time_minutes": map[string]any{
				"type":        []any{"integer", "null"},
				"description": "Time for cooking/baking/waiting in minutes",
				"minimum":     0,
			},
			"url": map[string]any{
				"type":        "string",
				"description": "Source URL if recipe is from the web",
				"format":      "uri",
			},
			"notes": map[string]any{
				"type":        "string",
				"description": "Any additional notes about the recipe",
			},
			"special_equipment": map[string]any{
				"type":        "string",
				"description": "Special equipment needed for the recipe",
			},
			"ingredients": map[string]any{
				"type":        "array",
				"description": "List of ingredients",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"amount": map[string]any{
							"type":        "string",
							"description": "Amount/quantity (e.g., '2', '1/2', '1-2')",
						},
						"unit": map[string]any{
							"type":        "string",
							"description": "Unit of measurement (e.g., 'cups', 'tbsp', 'g')",
						},
						"name": map[string]any{
							"type":        "string",
							"description": "Name of the ingredient",
							"minLength":   1,
						},
						"note": map[string]any{
							"type":        "string",
							"description": "Additional notes (e.g., 'chopped', 'room temperature')",
						},
						"order": map[string]any{
							"type":        "integer",
							"description": "Display order (0-indexed)",
							"minimum":     0,
						},
					},
					"required": []any{"name"},
				},
			},
			"steps": map[string]any{
				"type":        "array",
				"description": "List of recipe steps",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content": map[string]any{
							"type":        "string",
							"description": "Step instructions",
							"minLength":   1,
						},
						"order": map[string]any{
							"type":        "integer",
							"description": "Display order (0-indexed)",
							"minimum":     0,
						},
					},
					"required": []any{"content"},
				},
			},
		},
		"required": []any{"title"},
	}
}
