package compose

import "google.golang.org/genai"

const schemaName = "skyline_loop"

// ScoreSchema is the JSON schema of a generated loop.
func ScoreSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bpm": map[string]any{"type": "number"},
			"tracks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"instrument": map[string]any{"type": "string"},
						"notes": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"note":      map[string]any{"type": "string"},
									"startTime": map[string]any{"type": "number"},
									"duration":  map[string]any{"type": "number"},
								},
								"required":             []string{"note", "startTime", "duration"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"instrument", "notes"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"bpm", "tracks"},
		"additionalProperties": false,
	}
}

// geminiScoreSchema mirrors ScoreSchema in Gemini's schema type.
func geminiScoreSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bpm": {Type: genai.TypeNumber},
			"tracks": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"instrument": {Type: genai.TypeString},
						"notes": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"note":      {Type: genai.TypeString},
									"startTime": {Type: genai.TypeNumber},
									"duration":  {Type: genai.TypeNumber},
								},
								Required: []string{"note", "startTime", "duration"},
							},
						},
					},
					Required: []string{"instrument", "notes"},
				},
			},
		},
		Required: []string{"bpm", "tracks"},
	}
}
