package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 4096

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// MaxRetries is passed to the SDK. Zero keeps the SDK default.
	MaxRetries int
}

// AnthropicGenerator asks Claude to write the component and to refine it
// from chat messages.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &AnthropicGenerator{client: anthropic.NewClient(opts...), model: cfg.Model}, nil
}

func systemPrompt(f Framework, s Styling) string {
	styling := "Tailwind CSS utility classes"
	if s == StylingCSS {
		styling = "plain CSS class names with a separate stylesheet"
	}
	return fmt.Sprintf("You are an expert UI code generator for %s. Convert canvas sketch data into clean, "+
		"production-ready code. The canvas data contains freehand strokes and shapes (rectangles, circles, "+
		"ellipses, triangles, arrows, text) drawn by the user. Style with %s. Make the code responsive and "+
		"accessible, use semantic HTML, and return only the code with no explanations.", f, styling)
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	canvas, err := json.Marshal(req.Scene)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	elements := Detect(req.Scene)
	hints, _ := json.Marshal(elements)

	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = "No description provided"
	}
	prompt := fmt.Sprintf("Generate %s component code based on this sketch.\n\nCanvas Data: %s\n\n"+
		"Detected elements (heuristic, may be wrong): %s\n\nUser Description: %s",
		req.Framework, canvas, hints, description)

	code, err := g.complete(ctx, systemPrompt(req.Framework, req.Styling), []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Code:             code,
		DetectedElements: elements,
		Framework:        req.Framework,
		Styling:          req.Styling,
		Generator:        "anthropic",
	}, nil
}

func (g *AnthropicGenerator) Refine(ctx context.Context, req RefineRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("Here is the current code:\n\n" + req.CurrentCode)),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock("Understood. What should I change?")),
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	code, err := g.complete(ctx, systemPrompt(req.Framework, req.Styling)+" When asked for changes, return the complete updated code.", msgs)
	if err != nil {
		return nil, err
	}
	return &Result{
		Code:             code,
		DetectedElements: []Element{},
		Framework:        req.Framework,
		Styling:          req.Styling,
		Generator:        "anthropic",
	}, nil
}

func (g *AnthropicGenerator) complete(ctx context.Context, system string, msgs []anthropic.MessageParam) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Type: "text", Text: system}},
		Messages:  msgs,
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: anthropic status %d", ErrUnavailable, apiErr.StatusCode)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	code := extractCode(text.String())
	if code == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return code, nil
}

// extractCode returns the first fenced block of s, or s itself when there is
// no fence.
func extractCode(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
