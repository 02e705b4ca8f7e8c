package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/ironsheep/tissue-mask-mcp/internal/cache"
	"github.com/ironsheep/tissue-mask-mcp/internal/dataset"
	"github.com/ironsheep/tissue-mask-mcp/internal/detection"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_open", "mask_preview").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each dataset tool handler:
//  1. Unmarshals arguments from JSON
//  2. Opens the dataset, or reuses it from the open-dataset cache
//  3. Calls the dataset, mask, detection or render function
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Dataset Information
	case "dataset_detect":
		return s.handleDatasetDetect(args)
	case "dataset_open":
		return s.handleDatasetOpen(args)
	case "dataset_channels":
		return s.handleDatasetChannels(args)
	case "dataset_validate":
		return s.handleDatasetValidate(args)
	case "dataset_tier":
		return s.handleDatasetTier(args)
	case "dataset_formats":
		return s.handleDatasetFormats(args)

	// Mask Operations
	case "dataset_generate_mask":
		return s.handleGenerateMask(args)
	case "mask_preview":
		return s.handleMaskPreview(args)
	case "mask_iou":
		return s.handleMaskIoU(args)
	case "dataset_clear_cache":
		return s.handleClearCache(args)

	// Detection
	case "image_detect_circles":
		return s.handleDetectCircles(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// datasetArgs are the arguments shared by every dataset tool.
type datasetArgs struct {
	Path string `json:"path"`
	Hint string `json:"hint"`
}

// key resolves the modality of the arguments and returns the open-dataset
// cache key.
func (a datasetArgs) key() (dataset.Modality, string, error) {
	if a.Path == "" {
		return "", "", errors.New("path is required")
	}
	m, err := dataset.DetectModality(a.Path, a.Hint)
	if err != nil {
		return "", "", err
	}
	return m, cache.DatasetKey(m, a.Path), nil
}

// openDataset returns the cached dataset for the arguments or opens it.
func (s *Server) openDataset(a datasetArgs) (dataset.Dataset, string, error) {
	m, key, err := a.key()
	if err != nil {
		return nil, "", err
	}
	if ds, ok := s.cache.GetDataset(key); ok {
		return ds, key, nil
	}
	ds, err := dataset.Open(a.Path, string(m), s.cfg)
	if err != nil {
		return nil, "", err
	}
	s.cache.AddDataset(key, ds)
	if s.cfg.Debug() {
		log.Printf("DEBUG: opened %s dataset %s", m, a.Path)
	}
	return ds, key, nil
}

// === Dataset Information Handlers ===

func (s *Server) handleDatasetDetect(args json.RawMessage) (interface{}, error) {
	var a datasetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	m, _, err := a.key()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": a.Path, "modality": m}, nil
}

type datasetOpenArgs struct {
	datasetArgs
	IncludeOMEXML bool `json:"include_ome_xml"`
}

// DatasetSummary is the dataset_open result.
type DatasetSummary struct {
	Modality   dataset.Modality  `json:"modality"`
	Path       string            `json:"path"`
	Resolution float64           `json:"resolution_um_per_px"`
	Channels   []string          `json:"channels"`
	Metadata   *dataset.Metadata `json:"metadata"`
	Valid      bool              `json:"valid"`
	Message    string            `json:"message,omitempty"`
	Warnings   []dataset.Warning `json:"warnings"`
	Tier       *dataset.TierInfo `json:"tier,omitempty"`
}

func (s *Server) handleDatasetOpen(args json.RawMessage) (interface{}, error) {
	var a datasetOpenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, _, err := s.openDataset(a.datasetArgs)
	if err != nil {
		return nil, err
	}

	meta := ds.Metadata()
	if !a.IncludeOMEXML {
		meta.Delete("ome_xml")
	}
	valid, msg := ds.Validate()
	summary := &DatasetSummary{
		Modality:   ds.Modality(),
		Path:       ds.Path(),
		Resolution: ds.Resolution(),
		Channels:   ds.Channels(),
		Metadata:   meta,
		Valid:      valid,
		Message:    msg,
		Warnings:   ds.Warnings(),
	}
	if x, ok := ds.(*dataset.XeniumDataset); ok {
		info := x.TierInfo()
		summary.Tier = &info
	}
	if summary.Warnings == nil {
		summary.Warnings = []dataset.Warning{}
	}
	return summary, nil
}

func (s *Server) handleDatasetChannels(args json.RawMessage) (interface{}, error) {
	var a datasetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, _, err := s.openDataset(a)
	if err != nil {
		return nil, err
	}
	channels := ds.Channels()
	return map[string]interface{}{
		"channels":        channels,
		"num_channels":    len(channels),
		"default_channel": dataset.DefaultChannel,
	}, nil
}

func (s *Server) handleDatasetValidate(args json.RawMessage) (interface{}, error) {
	var a datasetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, _, err := s.openDataset(a)
	if err != nil {
		return nil, err
	}
	valid, msg := ds.Validate()
	return map[string]interface{}{"valid": valid, "message": msg}, nil
}

func (s *Server) handleDatasetTier(args json.RawMessage) (interface{}, error) {
	var a datasetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, _, err := s.openDataset(a)
	if err != nil {
		return nil, err
	}
	x, ok := ds.(*dataset.XeniumDataset)
	if !ok {
		return nil, fmt.Errorf("tiers only apply to xenium datasets, %s is %s", a.Path, ds.Modality())
	}
	return x.TierInfo(), nil
}

func (s *Server) handleDatasetFormats(json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"formats":      dataset.SupportedFormats(),
		"mask_methods": mask.Methods,
	}, nil
}

// === Mask Operation Handlers ===

type generateMaskArgs struct {
	datasetArgs
	Options map[string]interface{} `json:"options"`
	Output  string                 `json:"output"`
}

// MaskSummary is the dataset_generate_mask result.
type MaskSummary struct {
	Requested        mask.Method        `json:"requested_method"`
	Method           mask.Method        `json:"method"`
	Channel          int                `json:"channel"`
	Width            int                `json:"width"`
	Height           int                `json:"height"`
	ForegroundPixels int                `json:"foreground_pixels"`
	Coverage         float64            `json:"coverage"`
	Threshold        *int               `json:"threshold,omitempty"`
	Circles          []detection.Circle `json:"circles,omitempty"`
	Polygons         int                `json:"polygons,omitempty"`
	Fallback         string             `json:"fallback,omitempty"`
	Output           string             `json:"output,omitempty"`
}

// generate opens the dataset and runs GenerateMask with the parsed options.
func (s *Server) generate(a datasetArgs, raw map[string]interface{}) (dataset.Dataset, string, mask.Options, *mask.Result, error) {
	opts, err := mask.ParseOptions(raw, mask.DefaultOptions(s.cfg))
	if err != nil {
		return nil, "", opts, nil, err
	}
	ds, key, err := s.openDataset(a)
	if err != nil {
		return nil, "", opts, nil, err
	}
	res, err := ds.GenerateMask(opts)
	if err != nil {
		return nil, "", opts, nil, err
	}
	return ds, key, opts, res, nil
}

func (s *Server) handleGenerateMask(args json.RawMessage) (interface{}, error) {
	var a generateMaskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, _, opts, res, err := s.generate(a.datasetArgs, a.Options)
	if err != nil {
		return nil, err
	}

	b := res.Mask.Bounds()
	n := imaging.CountForeground(res.Mask)
	summary := &MaskSummary{
		Requested:        opts.Method,
		Method:           res.Method,
		Channel:          opts.Channel,
		Width:            b.Dx(),
		Height:           b.Dy(),
		ForegroundPixels: n,
		Threshold:        res.Threshold,
		Circles:          res.Circles,
		Polygons:         res.Polygons,
		Fallback:         res.Fallback,
	}
	if total := b.Dx() * b.Dy(); total > 0 {
		summary.Coverage = float64(n) / float64(total)
	}
	if a.Output != "" {
		if err := mask.Save(a.Output, res.Mask); err != nil {
			return nil, err
		}
		s.masks.Evict(a.Output)
		summary.Output = a.Output
	}
	return summary, nil
}

type maskPreviewArgs struct {
	datasetArgs
	Options map[string]interface{} `json:"options"`
	Preview json.RawMessage        `json:"preview"`
}

// PreviewResult contains the encoded preview
type PreviewResult struct {
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Method      mask.Method `json:"method"`
	ImageBase64 string      `json:"image_base64"`
	MimeType    string      `json:"mime_type"`
	Cached      bool        `json:"cached"`
}

func (s *Server) handleMaskPreview(args json.RawMessage) (interface{}, error) {
	var a maskPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	po := render.DefaultOptions()
	if len(a.Preview) > 0 {
		if err := json.Unmarshal(a.Preview, &po); err != nil {
			return nil, fmt.Errorf("invalid preview options: %w", err)
		}
	}

	ds, key, opts, res, err := s.generate(a.datasetArgs, a.Options)
	if err != nil {
		return nil, err
	}
	pkey := cache.PreviewKey(key, opts.Key(), map[string]interface{}{
		"max_size": po.MaxSize,
		"overlay":  po.Overlay,
		"outline":  po.Outline,
		"color":    po.Color,
		"alpha":    po.Alpha,
	})

	if data, ok := s.cache.GetPreview(pkey); ok {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err == nil {
			return &PreviewResult{
				Width:       cfg.Width,
				Height:      cfg.Height,
				Method:      res.Method,
				ImageBase64: base64.StdEncoding.EncodeToString(data),
				MimeType:    "image/png",
				Cached:      true,
			}, nil
		}
	}

	var source *image.Gray
	if po.Overlay {
		plane, err := ds.LoadImage(opts.Channel)
		if err != nil {
			return nil, err
		}
		source = plane.Gray()
	}
	img, err := render.Preview(source, res, po)
	if err != nil {
		return nil, err
	}
	data, err := render.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := s.cache.SetPreview(pkey, data); err != nil && s.cfg.Debug() {
		log.Printf("DEBUG: preview not cached: %v", err)
	}

	return &PreviewResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Method:      res.Method,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

type maskIoUArgs struct {
	Mask1 string `json:"mask1"`
	Mask2 string `json:"mask2"`
}

func (s *Server) handleMaskIoU(args json.RawMessage) (interface{}, error) {
	var a maskIoUArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Mask1 == "" || a.Mask2 == "" {
		return nil, errors.New("mask1 and mask2 are required")
	}
	m1, err := s.masks.LoadGray(a.Mask1)
	if err != nil {
		return nil, err
	}
	m2, err := s.masks.LoadGray(a.Mask2)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"iou":          imaging.IoU(m1, m2),
		"mask1_pixels": imaging.CountForeground(m1),
		"mask2_pixels": imaging.CountForeground(m2),
	}, nil
}

func (s *Server) handleClearCache(args json.RawMessage) (interface{}, error) {
	var a datasetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var keys []string
	if a.Path == "" {
		keys = s.cache.DatasetKeys()
		s.masks.Clear()
	} else {
		_, key, err := a.key()
		if err != nil {
			return nil, err
		}
		keys = []string{key}
	}

	cleared := []string{}
	for _, k := range keys {
		if s.cache.RemoveDataset(k) {
			cleared = append(cleared, k)
		}
	}
	if err := s.cache.ResetPreviews(); err != nil {
		return nil, fmt.Errorf("failed to reset preview cache: %w", err)
	}
	return map[string]interface{}{
		"cleared": cleared,
		"count":   len(cleared),
		"cache":   s.cache.Stats(),
	}, nil
}

// === Detection Handlers ===

type detectCirclesArgs struct {
	datasetArgs
	Channel   int     `json:"channel"`
	MinRadius int     `json:"min_radius"`
	MaxRadius int     `json:"max_radius"`
	Param1    float64 `json:"param1"`
	Param2    float64 `json:"param2"`
	MinDist   float64 `json:"min_dist"`
}

func (s *Server) handleDetectCircles(args json.RawMessage) (interface{}, error) {
	var a detectCirclesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p := mask.DefaultOptions(s.cfg).Hough()
	if a.MinRadius != 0 {
		p.MinRadius = a.MinRadius
	}
	if a.MaxRadius != 0 {
		p.MaxRadius = a.MaxRadius
	}
	if a.Param1 != 0 {
		p.Param1 = a.Param1
	}
	if a.Param2 != 0 {
		p.Param2 = a.Param2
	}
	if a.MinDist != 0 {
		p.MinDist = a.MinDist
	}

	ds, _, err := s.openDataset(a.datasetArgs)
	if err != nil {
		return nil, err
	}
	plane, err := ds.LoadImage(a.Channel)
	if err != nil {
		return nil, err
	}
	return detection.Detect(plane.Gray(), p), nil
}
