// Package codegen turns a sketched scene into UI component source code.
//
// A Generator produces code from a scene; a Refiner revises existing code from
// a chat transcript. The remote service and the Claude-backed generator are
// tried first and the template generator is the offline fallback.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sketchcode/sketchcode/internal/document"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnavailable    = errors.New("generator unavailable")
)

type Framework string

const (
	FrameworkReact Framework = "react"
	FrameworkVue   Framework = "vue"
	FrameworkHTML  Framework = "html"
)

type Styling string

const (
	StylingTailwind Styling = "tailwind"
	StylingCSS      Styling = "css"
)

func ParseFramework(s string) (Framework, error) {
	switch f := Framework(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FrameworkReact, nil
	case FrameworkReact, FrameworkVue, FrameworkHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown framework %q", ErrInvalidRequest, s)
}

func ParseStyling(s string) (Styling, error) {
	switch st := Styling(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StylingTailwind, nil
	case StylingTailwind, StylingCSS:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown styling %q", ErrInvalidRequest, s)
}

type Request struct {
	Scene       document.Scene
	Framework   Framework
	Styling     Styling
	Description string
	ProjectID   string
	UserID      string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type RefineRequest struct {
	Messages    []Message
	CurrentCode string
	Framework   Framework
	Styling     Styling
}

func (r RefineRequest) validate() error {
	if len(r.Messages) == 0 || strings.TrimSpace(r.CurrentCode) == "" {
		return fmt.Errorf("%w: messages and current code are required", ErrInvalidRequest)
	}
	return nil
}

type Result struct {
	Code             string    `json:"code"`
	DetectedElements []Element `json:"detectedElements"`
	Framework        Framework `json:"framework"`
	Styling          Styling   `json:"styling"`
	UsedFallback     bool      `json:"usedFallback,omitempty"`
	// Generator names the implementation that produced the code.
	Generator string `json:"generator,omitempty"`
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

type Refiner interface {
	Refine(ctx context.Context, req RefineRequest) (*Result, error)
}
