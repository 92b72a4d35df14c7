package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/chronicle/internal/assets"
	"github.com/starford/chronicle/internal/links"
)

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	remote, err := assets.Fetch(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", remote.Filename)

	asset, err := s.e.Assets.Upload(ctx, remote.Data, filename, remote.ContentType)
	if err != nil {
		return s.toolError("upload asset", err), nil
	}

	target := asset.Path
	if note := req.GetString("note", ""); note != "" {
		target = links.LinkText(note, asset.Path)
	}
	return jsonResult(uploadResult{
		SavedPath:     asset.Path,
		MarkdownImage: fmt.Sprintf("![%s](%s)", asset.Name, target),
	}), nil
}
