package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// datasetProperties are the arguments every dataset tool accepts.
func datasetProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the dataset directory or container file",
		},
		"hint": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"visium", "xenium", "phenocycler", "ometiff"},
			"description": "Optional modality. Required for Xenium output directories, which are never auto-detected.",
		},
	}
}

// withProperties returns the dataset properties plus extra.
func withProperties(extra map[string]interface{}) map[string]interface{} {
	props := datasetProperties()
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var maskOptionsProperty = map[string]interface{}{
	"type": "object",
	"description": "Mask options. Unknown keys are ignored. Keys: method (auto, contour, intensity, adaptive, circle, polygon), " +
		"channel, threshold, min_area, max_area, kernel_size, iterations, morph_op, block_size, c, min_radius, max_radius, " +
		"param1, param2, min_dist, post_process, post_kernel_size, post_iterations",
	"properties": map[string]interface{}{
		"method": map[string]interface{}{
			"type": "string",
			"enum": []string{"auto", "contour", "intensity", "adaptive", "circle", "polygon"},
		},
		"channel":   map[string]interface{}{"type": "integer"},
		"threshold": map[string]interface{}{"type": "integer"},
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Dataset Information
		{
			Name:        "dataset_detect",
			Description: "Detect which spatial biology modality a path holds without opening it.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": datasetProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "dataset_open",
			Description: "Open a dataset and return its modality, resolution, channels, metadata, warnings and validation status.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"include_ome_xml": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the raw OME-XML description in the metadata (default false)",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "dataset_channels",
			Description: "List the channel names of a dataset.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": datasetProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "dataset_validate",
			Description: "Check that a dataset has every artifact its format requires.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": datasetProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "dataset_tier",
			Description: "Report the tier of a Xenium dataset (minimal or full) and which companion tables loaded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": datasetProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "dataset_formats",
			Description: "List the supported modalities, their file types and directory layouts, and the mask methods.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Mask Operations
		{
			Name:        "dataset_generate_mask",
			Description: "Generate a binary tissue mask for a dataset. Returns the method that ran, coverage and any fallback; optionally writes the mask to a PNG or TIFF file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"options": maskOptionsProperty,
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the mask to (.png, .tif or .tiff)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "mask_preview",
			Description: "Render a mask preview as base64-encoded PNG: the mask tinted over its source channel with component outlines and detected circles.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"options": maskOptionsProperty,
					"preview": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"max_size": map[string]interface{}{"type": "integer", "description": "Longest preview side in pixels (default 512, 0 = full size)"},
							"overlay":  map[string]interface{}{"type": "boolean", "description": "Tint the mask over the source channel (default true)"},
							"outline":  map[string]interface{}{"type": "boolean", "description": "Outline mask components (default true)"},
							"color":    map[string]interface{}{"type": "string", "description": "Tint color as hex (default #00c853)"},
							"alpha":    map[string]interface{}{"type": "number", "description": "Tint opacity 0-1 (default 0.4)"},
						},
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "mask_iou",
			Description: "Compute the intersection over union of two mask image files.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mask1": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the first mask (PNG, JPEG or TIFF)",
					},
					"mask2": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the second mask",
					},
				},
				"required": []string{"mask1", "mask2"},
			},
		},
		{
			Name:        "dataset_clear_cache",
			Description: "Drop cached planes, masks and previews. With a path only that dataset is closed; without one every dataset is.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": datasetProperties(),
			},
		},

		// Detection
		{
			Name:        "image_detect_circles",
			Description: "Detect fiducial circles in a dataset channel with a Hough gradient search. Returns circles ordered by accumulator votes and radius statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"channel":    map[string]interface{}{"type": "integer", "description": "Channel index (default 0)"},
					"min_radius": map[string]interface{}{"type": "integer", "description": "Minimum radius in pixels (default from config, 10)"},
					"max_radius": map[string]interface{}{"type": "integer", "description": "Maximum radius in pixels (default from config, 10)"},
					"param1":     map[string]interface{}{"type": "number", "description": "Upper Canny threshold (default 100)"},
					"param2":     map[string]interface{}{"type": "number", "description": "Accumulator threshold (default 30)"},
					"min_dist":   map[string]interface{}{"type": "number", "description": "Minimum distance between centres (default 20)"},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
