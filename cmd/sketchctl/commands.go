package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sketchcode/sketchcode/internal/codegen"
	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/export"
	"github.com/sketchcode/sketchcode/internal/templates"
)

func buildRenderCmd() *cobra.Command {
	var (
		format     string
		output     string
		grid       bool
		pixelRatio float64
		quality    float64
	)
	cmd := &cobra.Command{
		Use:   "render <scene.json>",
		Short: "Render a scene to PNG, JPEG, SVG or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			scene, err := readScene(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				output = base + "." + f.Ext()
			}

			var buf bytes.Buffer
			opts := export.Options{Grid: grid, PixelRatio: pixelRatio, Quality: quality}
			if err := export.Render(&buf, scene, f, opts); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, buf.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "png", "Output format: png, jpeg, svg or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default <scene>.<ext>)")
	cmd.Flags().BoolVar(&grid, "grid", false, "Draw the background grid")
	cmd.Flags().Float64Var(&pixelRatio, "pixel-ratio", export.DefaultPixelRatio, "Raster pixel ratio")
	cmd.Flags().Float64Var(&quality, "quality", export.DefaultQuality, "JPEG quality in (0, 1]")
	return cmd
}

func buildGenerateCmd() *cobra.Command {
	var (
		framework   string
		styling     string
		description string
		showJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "generate <scene.json>",
		Short: "Generate component code from a scene",
		Long: `Generate detects UI elements in the scene and writes a component
using the built-in templates. No network access is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fw, err := codegen.ParseFramework(framework)
			if err != nil {
				return err
			}
			st, err := codegen.ParseStyling(styling)
			if err != nil {
				return err
			}
			scene, err := readScene(args[0])
			if err != nil {
				return err
			}

			res, err := codegen.TemplateGenerator{}.Generate(cmd.Context(), codegen.Request{
				Scene:       scene,
				Framework:   fw,
				Styling:     st,
				Description: description,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showJSON {
				return writeJSON(out, res)
			}
			fmt.Fprintln(out, res.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&framework, "framework", "react", "Target framework: react, vue or html")
	cmd.Flags().StringVar(&styling, "styling", "tailwind", "Styling: tailwind or css")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-form description of the component")
	cmd.Flags().BoolVar(&showJSON, "json", false, "Print the full result, including detected elements")
	return cmd
}

func buildTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse the built-in UI templates",
	}
	cmd.AddCommand(buildTemplatesListCmd(), buildTemplatesShowCmd())
	return cmd
}

func buildTemplatesListCmd() *cobra.Command {
	var category, query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := templates.Builtin().Search(query)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME")
			for _, t := range list {
				if category != "" && t.Category != category {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Category, t.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only show this category")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search names, descriptions and tags")
	return cmd
}

func buildTemplatesShowCmd() *cobra.Command {
	var asScene bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := templates.Builtin().Get(args[0])
			if err != nil {
				return err
			}
			if asScene {
				return writeJSON(cmd.OutOrStdout(), t.Scene())
			}
			return writeJSON(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().BoolVar(&asScene, "scene", false, "Print the partial scene the template inserts")
	return cmd
}

func readScene(path string) (document.Scene, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return document.Scene{}, fmt.Errorf("read scene: %w", err)
	}
	return document.Parse(data)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
