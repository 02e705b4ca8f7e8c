package server

import (
	"testing"
)

func toolByName(t *testing.T, name string) Tool {
	t.Helper()
	for _, tool := range GetToolDefinitions() {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return Tool{}
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expected := []string{
		"dataset_detect",
		"dataset_open",
		"dataset_channels",
		"dataset_validate",
		"dataset_tier",
		"dataset_formats",
		"dataset_generate_mask",
		"mask_preview",
		"mask_iou",
		"dataset_clear_cache",
		"image_detect_circles",
	}

	if len(tools) != len(expected) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expected))
	}
	seen := make(map[string]bool)
	for _, tool := range tools {
		if seen[tool.Name] {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		seen[tool.Name] = true
	}
	for _, name := range expected {
		if !seen[name] {
			t.Errorf("expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			if _, ok := tool.InputSchema["properties"].(map[string]interface{}); !ok {
				t.Error("InputSchema properties should be a map")
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	for _, name := range []string{
		"dataset_detect",
		"dataset_open",
		"dataset_channels",
		"dataset_validate",
		"dataset_tier",
		"dataset_generate_mask",
		"mask_preview",
		"image_detect_circles",
	} {
		t.Run(name, func(t *testing.T) {
			tool := toolByName(t, name)
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			hasPath := false
			for _, r := range required {
				if r == "path" {
					hasPath = true
				}
			}
			if !hasPath {
				t.Error("Tool should require 'path' parameter")
			}
			props := tool.InputSchema["properties"].(map[string]interface{})
			if _, ok := props["hint"]; !ok {
				t.Error("dataset tools should accept a modality hint")
			}
		})
	}
}

func TestToolDefinitions_MaskIoURequired(t *testing.T) {
	tool := toolByName(t, "mask_iou")
	required, _ := tool.InputSchema["required"].([]string)
	want := map[string]bool{"mask1": true, "mask2": true}
	for _, r := range required {
		delete(want, r)
	}
	for missing := range want {
		t.Errorf("mask_iou should require %q", missing)
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result := resp.Result.(map[string]interface{})
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
