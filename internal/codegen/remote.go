package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sketchcode/sketchcode/internal/document"
)

// RemoteGenerator posts the scene to an external prediction service.
type RemoteGenerator struct {
	url    string
	client *http.Client
}

func NewRemoteGenerator(url string, timeout time.Duration) *RemoteGenerator {
	return &RemoteGenerator{url: url, client: &http.Client{Timeout: timeout}}
}

type remoteRequest struct {
	CanvasData  document.Scene `json:"canvasData"`
	Framework   Framework      `json:"framework"`
	Styling     Styling        `json:"styling"`
	Description string         `json:"description,omitempty"`
	ProjectID   string         `json:"projectId,omitempty"`
	UserID      string         `json:"userId,omitempty"`
}

type remoteResponse struct {
	Code             string    `json:"code"`
	DetectedElements []Element `json:"detectedElements"`
}

func (g *RemoteGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(remoteRequest{
		CanvasData:  req.Scene,
		Framework:   req.Framework,
		Styling:     req.Styling,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		UserID:      req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrUnavailable)
	}
	if out.DetectedElements == nil {
		out.DetectedElements = []Element{}
	}
	return &Result{
		Code:             out.Code,
		DetectedElements: out.DetectedElements,
		Framework:        req.Framework,
		Styling:          req.Styling,
		Generator:        "remote",
	}, nil
}
