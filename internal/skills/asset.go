package skills

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/novafield/rewind/internal/engine"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/types"
)

// fetchLimit caps downloaded asset size.
const fetchLimit = 64 << 20

// Asset exposes file-backed asset operations under the asset root.
type Asset struct {
	engine *engine.Engine
	client *retryablehttp.Client
}

// NewAsset creates the asset skill provider.
func NewAsset(eng *engine.Engine) *Asset {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	return &Asset{engine: eng, client: client}
}

// Definition returns skill metadata.
func (a *Asset) Definition() types.Skill {
	return types.Skill{
		ID:          "asset",
		Name:        "Assets",
		Description: "Read, write, fetch, and delete file-backed assets",
		Category:    types.CategoryAsset,
		Capabilities: []string{
			"read",
			"write",
			"fetch",
			"delete",
		},
		Tools: []types.Tool{
			{
				ID:          "asset.write",
				Name:        "Write Asset",
				Description: "Write text or base64 content to a path under the asset root",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Relative asset path", Required: true},
					{Name: "content", Type: "string", Description: "File content", Required: true},
					{Name: "encoding", Type: "string", Description: "text or base64, defaults to text", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "asset.read",
				Name:        "Read Asset",
				Description: "Read an asset as base64",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Relative asset path", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "asset.delete",
				Name:        "Delete Asset",
				Description: "Delete an asset file",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Relative asset path", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "asset.fetch",
				Name:        "Fetch Asset",
				Description: "Download a URL into the asset root, retrying transient failures",
				Parameters: []types.Parameter{
					{Name: "url", Type: "string", Description: "Source URL", Required: true},
					{Name: "path", Type: "string", Description: "Destination asset path", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "asset.hash",
				Name:        "Hash Asset",
				Description: "Content hash of an asset, usable for binary-exact comparison",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Relative asset path", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "asset.list",
				Name:        "List Assets",
				Description: "List every file under the asset root",
				Returns:     "array",
			},
		},
	}
}

// Execute runs an asset tool.
func (a *Asset) Execute(ctx context.Context, toolID string, params map[string]interface{}, sctx *types.Context) (*types.Result, error) {
	switch toolID {
	case "asset.write":
		return a.write(params)
	case "asset.read":
		return a.read(params)
	case "asset.delete":
		return a.delete(params)
	case "asset.fetch":
		return a.fetch(ctx, params)
	case "asset.hash":
		return a.hash(params)
	case "asset.list":
		return a.list()
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID)), nil
	}
}

func (a *Asset) write(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	content, err := stringParam(params, "content")
	if err != nil {
		return Failure(err.Error()), nil
	}
	data := []byte(content)
	if optionalString(params, "encoding", "text") == "base64" {
		data, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return Failure(fmt.Sprintf("invalid base64 content: %v", err)), nil
		}
	}
	return a.store(path, data)
}

func (a *Asset) store(path string, data []byte) (*types.Result, error) {
	existed := a.engine.Assets.Exists(path)
	if existed {
		a.engine.Recorder.CaptureModified(scene.AssetIdentity(path))
	}
	if err := a.engine.Assets.WriteBytes(path, data); err != nil {
		return Failure(err.Error()), nil
	}
	if !existed {
		a.engine.Recorder.CaptureCreatedAsset(path)
	}
	return Success(map[string]interface{}{
		"path": path,
		"size": len(data),
	}), nil
}

func (a *Asset) read(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	data, err := a.engine.Assets.ReadBytes(path)
	if err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{
		"path":    path,
		"content": base64.StdEncoding.EncodeToString(data),
		"size":    len(data),
	}), nil
}

func (a *Asset) delete(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	a.engine.Recorder.CaptureModified(scene.AssetIdentity(path))
	if err := a.engine.Assets.Delete(path); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{"deleted": path}), nil
}

func (a *Asset) fetch(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	url, err := stringParam(params, "url")
	if err != nil {
		return Failure(err.Error()), nil
	}
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Failure(err.Error()), nil
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return Failure(fmt.Sprintf("fetch failed: %v", err)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return Failure(fmt.Sprintf("fetch failed: status %d", resp.StatusCode)), nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, fetchLimit))
	if err != nil {
		return Failure(err.Error()), nil
	}
	return a.store(path, data)
}

func (a *Asset) hash(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	sum, err := a.engine.Assets.Hash(path)
	if err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{
		"path": path,
		"hash": sum,
	}), nil
}

func (a *Asset) list() (*types.Result, error) {
	infos, err := a.engine.Assets.Scan()
	if err != nil {
		return Failure(err.Error()), nil
	}
	out := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		out = append(out, map[string]interface{}{
			"path":   info.Path,
			"size":   info.Size,
			"source": info.Source,
		})
	}
	return Success(map[string]interface{}{"assets": out, "count": len(out)}), nil
}
