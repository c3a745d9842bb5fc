package project

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sketchcode/sketchcode/internal/auth"
)

const maxCanvasSize = 10 << 20 // 10MB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the project routes on an authenticated subrouter.
func (h *Handler) Register(api *mux.Router) {
	api.HandleFunc("/projects", h.List).Methods("GET")
	api.HandleFunc("/projects", h.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", h.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", h.Update).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}", h.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/canvas", h.SaveCanvas).Methods("PUT")
	api.HandleFunc("/projects/{projectId}/versions", h.ListVersions).Methods("GET")
	api.HandleFunc("/projects/{projectId}/versions", h.CreateVersion).Methods("POST")
	api.HandleFunc("/projects/{projectId}/versions/compare", h.CompareVersions).Methods("GET")
	api.HandleFunc("/projects/{projectId}/versions/{versionId}", h.RestoreVersion).Methods("GET")
	api.HandleFunc("/projects/{projectId}/versions/{versionId}", h.DeleteVersion).Methods("DELETE")
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type canvasRequest struct {
	Canvas    json.RawMessage `json:"canvas"`
	Thumbnail *string         `json:"thumbnail"`
}

type versionRequest struct {
	// Canvas is optional; without it the project's current canvas is used.
	Canvas      json.RawMessage `json:"canvas"`
	Description string          `json:"description"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	projects, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]

	p, err := h.service.Get(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.Update(r.Context(), projectID, userID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]

	if err := h.service.Delete(r.Context(), projectID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SaveCanvas(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]
	r.Body = http.MaxBytesReader(w, r.Body, maxCanvasSize)

	var req canvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.SaveCanvas(r.Context(), projectID, userID, req.Canvas, req.Thumbnail)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]

	versions, err := h.service.Versions(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]
	r.Body = http.MaxBytesReader(w, r.Body, maxCanvasSize)

	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.service.CreateVersion(r.Context(), projectID, userID, req.Canvas, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	v, err := h.service.RestoreVersion(r.Context(), vars["projectId"], vars["versionId"], userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	if err := h.service.DeleteVersion(r.Context(), vars["projectId"], vars["versionId"], userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompareVersions reads the two version ids from the "from" and "to" query
// parameters.
func (h *Handler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and to are required"})
		return
	}

	c, err := h.service.CompareVersions(r.Context(), projectID, from, to, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrVersionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "version not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrInvalidScene), errors.Is(err, ErrNameRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
