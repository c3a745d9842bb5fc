package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	minPasswordLen = 8
	maxBodySize    = 1 << 20
)

var errBadRequest = errors.New("bad request")

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (c *credentials) normalize() {
	c.Email = strings.TrimSpace(c.Email)
	c.DisplayName = strings.TrimSpace(c.DisplayName)
}

func (c credentials) validateLogin() error {
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("%w: email and password are required", errBadRequest)
	}
	return nil
}

func (c credentials) validateRegister() error {
	switch {
	case c.Email == "" || c.Password == "" || c.DisplayName == "":
		return fmt.Errorf("%w: email, password, and displayName are required", errBadRequest)
	case !strings.Contains(c.Email, "@"):
		return fmt.Errorf("%w: invalid email", errBadRequest)
	case len(c.Password) < minPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters", errBadRequest, minPasswordLen)
	}
	return nil
}

// decodeCredentials reads and checks the request body. On failure it has
// already written the response.
func decodeCredentials(w http.ResponseWriter, r *http.Request, validate func(credentials) error) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return c, false
	}
	c.normalize()
	if err := validate(c); err != nil {
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "))
		return c, false
	}
	return c, true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r, credentials.validateRegister)
	if !ok {
		return
	}

	result, err := h.service.Register(r.Context(), c.Email, c.Password, c.DisplayName)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case err != nil:
		slog.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Info("user registered", "userID", result.User.ID)
		writeJSON(w, http.StatusCreated, result)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r, credentials.validateLogin)
	if !ok {
		return
	}

	result, err := h.service.Login(r.Context(), c.Email, c.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case err != nil:
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// Me returns the authenticated user. Mounted behind AuthMiddleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case err != nil:
		slog.Error("get user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, user)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
