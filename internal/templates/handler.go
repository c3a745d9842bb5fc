package templates

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sketchcode/sketchcode/internal/document"
)

type Handler struct {
	catalogue *Catalogue
}

func NewHandler(c *Catalogue) *Handler {
	return &Handler{catalogue: c}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/templates", h.List).Methods("GET")
	r.HandleFunc("/templates/categories", h.Categories).Methods("GET")
	r.HandleFunc("/templates/{id}", h.Get).Methods("GET")
}

// List filters by the "category" and "q" query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := h.catalogue.Search(q.Get("q"))
	if cat := q.Get("category"); cat != "" {
		filtered := []Template{}
		for _, t := range out {
			if t.Category == cat {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalogue.Categories())
}

type templateResponse struct {
	Template
	// Scene is the insertable partial scene.
	Scene document.Scene `json:"scene"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.catalogue.Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{Template: t, Scene: t.Scene()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
