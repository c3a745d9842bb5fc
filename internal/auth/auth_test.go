package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sketchcode/sketchcode/internal/store"
)

func newTestService() *Service {
	s := NewService(store.NewMemoryStore(), "test-secret")
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	reg, err := s.Register(ctx, "ada@example.com", "correct horse", "Ada")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !strings.HasPrefix(reg.User.ID, "user_") {
		t.Errorf("user id = %q, want user_ prefix", reg.User.ID)
	}

	if _, err := s.Register(ctx, "ADA@example.com", "whatever1", "Other"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register(dup) error = %v, want ErrEmailTaken", err)
	}

	login, err := s.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	sub, err := s.ValidateToken(login.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if sub != reg.User.ID {
		t.Errorf("ValidateToken() = %q, want %q", sub, reg.User.ID)
	}

	if _, err := s.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(bad password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService()
	token, err := s.issueToken("user_1")
	if err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}

	other := NewService(store.NewMemoryStore(), "other-secret")
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken(wrong secret) error = nil")
	}

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := s.ValidateToken(token); err == nil {
		t.Error("ValidateToken(expired) error = nil")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user_1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := newTestService().ValidateToken(unsigned); err == nil {
		t.Error("ValidateToken(alg none) error = nil")
	}
}

func TestMiddleware(t *testing.T) {
	s := newTestService()
	token, _ := s.issueToken("user_42")

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token " + token, http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("Authorization %q: status = %d, want %d", tt.header, rec.Code, tt.want)
		}
	}
	if seen != "user_42" {
		t.Errorf("user in context = %q, want user_42", seen)
	}

	req := httptest.NewRequest("GET", "/ws/project/p?token="+token, nil)
	if id, err := s.Authenticate(req); err != nil || id != "user_42" {
		t.Errorf("Authenticate() = %q, %v", id, err)
	}
}

func TestHandlers(t *testing.T) {
	s := newTestService()
	h := NewHandler(s)

	post := func(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest("POST", "/", strings.NewReader(body)))
		return rec
	}

	tests := []struct {
		name string
		fn   http.HandlerFunc
		body string
		want int
	}{
		{"register", h.Register, `{"email":"a@b.c","password":"password1","displayName":"A"}`, http.StatusCreated},
		{"register dup", h.Register, `{"email":"a@b.c","password":"password1","displayName":"A"}`, http.StatusConflict},
		{"register short password", h.Register, `{"email":"x@b.c","password":"short","displayName":"X"}`, http.StatusBadRequest},
		{"register missing name", h.Register, `{"email":"x@b.c","password":"password1"}`, http.StatusBadRequest},
		{"register bad email", h.Register, `{"email":"nope","password":"password1","displayName":"X"}`, http.StatusBadRequest},
		{"register bad json", h.Register, `{`, http.StatusBadRequest},
		{"login", h.Login, `{"email":"a@b.c","password":"password1"}`, http.StatusOK},
		{"login wrong", h.Login, `{"email":"a@b.c","password":"password2"}`, http.StatusUnauthorized},
		{"login missing", h.Login, `{"email":"a@b.c"}`, http.StatusBadRequest},
	}
	var token string
	for _, tt := range tests {
		rec := post(tt.fn, tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.want, rec.Body.String())
			continue
		}
		if tt.name == "login" {
			var res AuthResult
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			token = res.Token
		}
	}

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.AuthMiddleware(http.HandlerFunc(h.Me)).ServeHTTP(rec, req)
	var me User
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if me.Email != "a@b.c" || me.DisplayName != "A" {
		t.Errorf("Me() = %+v", me)
	}
}
