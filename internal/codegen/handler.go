package codegen

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sketchcode/sketchcode/internal/auth"
	"github.com/sketchcode/sketchcode/internal/document"
)

const maxBodySize = 10 << 20 // 10MB

type Handler struct {
	generator Generator
	refiner   Refiner
}

func NewHandler(g Generator, r Refiner) *Handler {
	return &Handler{generator: g, refiner: r}
}

type generateRequest struct {
	CanvasData  json.RawMessage `json:"canvasData"`
	Framework   string          `json:"framework"`
	Styling     string          `json:"styling"`
	Description string          `json:"description"`
	ProjectID   string          `json:"projectId"`
	// Mode is "generate" (default) or "chat".
	Mode        string    `json:"mode"`
	Messages    []Message `json:"messages"`
	CurrentCode string    `json:"currentCode"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	framework, err := ParseFramework(req.Framework)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	styling, err := ParseStyling(req.Styling)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var res *Result
	switch req.Mode {
	case "", "generate":
		if len(req.CanvasData) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canvas data"})
			return
		}
		scene, perr := document.Parse(req.CanvasData)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid canvas data"})
			return
		}
		res, err = h.generator.Generate(r.Context(), Request{
			Scene:       scene,
			Framework:   framework,
			Styling:     styling,
			Description: req.Description,
			ProjectID:   req.ProjectID,
			UserID:      auth.UserIDFromContext(r.Context()),
		})
	case "chat":
		if len(req.Messages) == 0 || req.CurrentCode == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing messages or code context"})
			return
		}
		res, err = h.refiner.Refine(r.Context(), RefineRequest{
			Messages:    req.Messages,
			CurrentCode: req.CurrentCode,
			Framework:   framework,
			Styling:     styling,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be generate or chat"})
		return
	}

	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("code generation failed", "mode", req.Mode, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "code generation failed"})
		return
	}

	slog.Info("code generated", "generator", res.Generator, "framework", res.Framework, "elements", len(res.DetectedElements), "fallback", res.UsedFallback)
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
