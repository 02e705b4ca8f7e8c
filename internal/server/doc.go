// Package server implements the MCP (Model Context Protocol) server for tissue mask tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the dataset and mask
// operations through the MCP protocol, so MCP-compatible clients can inspect
// spatial biology datasets and derive tissue masks from them.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Requests are handled one at a time, in arrival order.
//
// # Available Tools
//
// Dataset Information:
//   - dataset_detect: Resolve the modality of a path
//   - dataset_open: Open a dataset and summarize it
//   - dataset_channels: List channel names
//   - dataset_validate: Check required artifacts
//   - dataset_tier: Xenium tier and companion availability
//   - dataset_formats: Supported modalities and mask methods
//
// Mask Operations:
//   - dataset_generate_mask: Generate a mask, optionally saving it
//   - mask_preview: Render a mask overlay as PNG
//   - mask_iou: Compare two mask files
//   - dataset_clear_cache: Close datasets and drop cached results
//
// Detection:
//   - image_detect_circles: Hough circle search on a dataset channel
//
// # Caching
//
// Open datasets are kept in an LRU keyed by modality and absolute path, so
// their decoded planes and masks are reused across calls. Evicted datasets
// drop their caches. Encoded previews live in a size-bounded byte cache
// with a TTL. Both are sized from the cache section of the configuration.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, which names the dataset error kind
//     (not found, unsupported format, decode, dependency missing)
//
// # Usage
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
