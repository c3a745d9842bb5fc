package codegen

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// TemplateGenerator renders detected elements into fixed component markup.
// It needs no network and never fails on a valid request.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Framework == "" {
		req.Framework = FrameworkReact
	}
	if req.Styling == "" {
		req.Styling = StylingTailwind
	}
	elements := Detect(req.Scene)
	return &Result{
		Code:             renderElements(elements, req.Framework, req.Styling),
		DetectedElements: elements,
		Framework:        req.Framework,
		Styling:          req.Styling,
		Generator:        "template",
	}, nil
}

// Refine cannot rewrite code without a model; it records the latest request
// as a comment so the conversation is not lost.
func (TemplateGenerator) Refine(ctx context.Context, req RefineRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	last := req.Messages[len(req.Messages)-1].Content
	var note string
	switch req.Framework {
	case FrameworkVue, FrameworkHTML:
		note = fmt.Sprintf("\n\n<!-- Refinement: %s -->", strings.ReplaceAll(last, "--", "- -"))
	default:
		note = fmt.Sprintf("\n\n{/* Refinement: %s */}", strings.ReplaceAll(last, "*/", "* /"))
	}
	return &Result{
		Code:             req.CurrentCode + note,
		DetectedElements: []Element{},
		Framework:        req.Framework,
		Styling:          req.Styling,
		Generator:        "template",
	}, nil
}

type classes struct {
	root, button, input, text, container string
}

func classSet(f Framework, s Styling) classes {
	if s == StylingCSS {
		return classes{"container", "btn", "input", "text", "card"}
	}
	c := classes{
		root:      "min-h-screen bg-gray-50 p-8",
		button:    "rounded-lg bg-blue-600 px-6 py-3 font-semibold text-white hover:bg-blue-700 transition-colors",
		input:     "rounded-lg border border-gray-300 px-4 py-2 focus:border-blue-500 focus:outline-none focus:ring-2 focus:ring-blue-200",
		text:      "text-gray-700",
		container: "rounded-xl border border-gray-200 bg-white p-6 shadow-sm",
	}
	switch f {
	case FrameworkVue:
		c.input = "rounded-lg border border-gray-300 px-4 py-2 focus:border-blue-500 focus:outline-none"
	case FrameworkHTML:
		c.button = "rounded-lg bg-blue-600 px-6 py-3 font-semibold text-white"
		c.input = "rounded-lg border border-gray-300 px-4 py-2"
	}
	return c
}

func labelOr(el Element, fallback string) string {
	if el.Label != "" {
		return html.EscapeString(el.Label)
	}
	return fallback
}

func renderElements(elements []Element, f Framework, s Styling) string {
	c := classSet(f, s)
	var b strings.Builder

	switch f {
	case FrameworkReact:
		b.WriteString("import React from 'react';\n")
		if s == StylingCSS {
			b.WriteString("import './Component.css';\n")
		}
		b.WriteString("\nexport default function GeneratedComponent() {\n  return (\n")
		fmt.Fprintf(&b, "    <div className=%q>\n", c.root)
		for i, el := range elements {
			switch el.Type {
			case ElementButton:
				fmt.Fprintf(&b, "      <button className=%q>\n        %s\n      </button>\n", c.button, labelOr(el, fmt.Sprintf("Button %d", i+1)))
			case ElementInput:
				fmt.Fprintf(&b, "      <input\n        type=\"text\"\n        placeholder=%q\n        className=%q\n      />\n", labelOr(el, "Enter text..."), c.input)
			case ElementText:
				fmt.Fprintf(&b, "      <p className=%q>%s</p>\n", c.text, labelOr(el, "Text content"))
			default:
				fmt.Fprintf(&b, "      <div className=%q>\n        {/* Container content */}\n      </div>\n", c.container)
			}
		}
		b.WriteString("    </div>\n  );\n}")

	case FrameworkVue:
		fmt.Fprintf(&b, "<template>\n  <div class=%q>\n", c.root)
		for i, el := range elements {
			switch el.Type {
			case ElementButton:
				fmt.Fprintf(&b, "    <button class=%q>%s</button>\n", c.button, labelOr(el, fmt.Sprintf("Button %d", i+1)))
			case ElementInput:
				fmt.Fprintf(&b, "    <input type=\"text\" placeholder=%q class=%q />\n", labelOr(el, "Enter text..."), c.input)
			case ElementText:
				fmt.Fprintf(&b, "    <p class=%q>%s</p>\n", c.text, labelOr(el, "Text content"))
			default:
				fmt.Fprintf(&b, "    <div class=%q><!-- Content --></div>\n", c.container)
			}
		}
		b.WriteString("  </div>\n</template>\n\n<script setup>\n// Component logic\n</script>")

	default:
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n  <meta charset=\"UTF-8\">\n")
		b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n  <title>Generated Layout</title>\n")
		if s == StylingTailwind {
			b.WriteString("  <script src=\"https://cdn.tailwindcss.com\"></script>\n")
		} else {
			b.WriteString("  <link rel=\"stylesheet\" href=\"styles.css\">\n")
		}
		fmt.Fprintf(&b, "</head>\n<body>\n  <div class=%q>\n", c.root)
		for i, el := range elements {
			switch el.Type {
			case ElementButton:
				fmt.Fprintf(&b, "    <button class=%q>%s</button>\n", c.button, labelOr(el, fmt.Sprintf("Button %d", i+1)))
			case ElementInput:
				fmt.Fprintf(&b, "    <input type=\"text\" placeholder=%q class=%q />\n", labelOr(el, "Enter text..."), c.input)
			case ElementText:
				fmt.Fprintf(&b, "    <p class=%q>%s</p>\n", c.text, labelOr(el, "Text content"))
			default:
				fmt.Fprintf(&b, "    <div class=%q><!-- Content --></div>\n", c.container)
			}
		}
		b.WriteString("  </div>\n</body>\n</html>")
	}
	return b.String()
}
