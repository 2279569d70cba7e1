package webclip

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/webclip/kit"
)

// RegisterMCP registers the webclip tools on an MCP server.
//
//	webclip_capture: capture an element of a page and store the clip
//	webclip_inspect: decoded container header of a stored clip
//	webclip_list: most recent stored clips
func (c *Clipper) RegisterMCP(srv *mcp.Server) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "webclip_capture",
		Description: "Capture the element matched by a CSS selector on a web page as an .inkclip artifact and deliver it to the configured sinks.",
		InputSchema: inputSchema(map[string]any{
			"url":           map[string]any{"type": "string", "description": "Page URL (http or https)"},
			"selector":      map[string]any{"type": "string", "description": "CSS selector of the element to capture"},
			"document_path": map[string]any{"type": "string", "description": "Document path for the storage backend (optional)"},
		}, []string{"url", "selector"}),
	}, c.captureEndpoint(), kit.DecodeJSON[captureReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "webclip_inspect",
		Description: "Return the page metadata and slice descriptors of a stored clip.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Clip ID"},
		}, []string{"id"}),
	}, c.inspectEndpoint(), kit.DecodeJSON[idReq]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "webclip_list",
		Description: "List the most recent stored clips, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum number of clips (default 50)"},
		}, nil),
	}, c.listEndpoint(), kit.DecodeJSON[listReq]())
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
