package export

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sketchcode/sketchcode/internal/document"
)

const maxUploadSize = 10 << 20 // 10MB

type Handler struct {
	pixelRatio float64
}

func NewHandler(pixelRatio float64) *Handler {
	if pixelRatio <= 0 {
		pixelRatio = DefaultPixelRatio
	}
	return &Handler{pixelRatio: pixelRatio}
}

type exportRequest struct {
	Scene   json.RawMessage `json:"scene"`
	Name    string          `json:"name"`
	Grid    bool            `json:"grid"`
	Quality float64         `json:"quality"`
	// DataURL asks for a JSON {"dataUrl": ...} reply instead of a download.
	DataURL bool `json:"dataUrl"`
}

// Export renders a posted scene snapshot in the format named by the route.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	format, err := ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		http.Error(w, "invalid format: must be png, jpeg, svg, or pdf", http.StatusBadRequest)
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	scene, err := document.Parse(req.Scene)
	if err != nil {
		http.Error(w, "invalid scene: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := sanitizeName(req.Name)
	slog.Info("export started", "format", format, "strokes", len(scene.Strokes), "shapes", len(scene.Shapes))

	var buf bytes.Buffer
	err = Render(&buf, scene, format, Options{Grid: req.Grid, PixelRatio: h.pixelRatio, Quality: req.Quality})
	if err != nil {
		slog.Error("export failed", "format", format, "error", err)
		if errors.Is(err, ErrUnknownFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("encoding failed: %v", err), http.StatusInternalServerError)
		return
	}

	if req.DataURL {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"dataUrl": "data:" + format.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
		slog.Info("export complete", "format", format, "size", buf.Len())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format.Ext()))
	size := buf.Len()
	w.Header().Set("Content-Length", strconv.Itoa(size))
	buf.WriteTo(w)

	slog.Info("export complete", "format", format, "size", size)
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "sketch"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
