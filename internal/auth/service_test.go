package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/freeflow/freeflow/backend-go/internal/db"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]db.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]db.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == arg.Email {
			return db.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := db.User{ID: arg.ID, Email: arg.Email, Password: arg.Password, DisplayName: arg.DisplayName}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func TestRegisterLoginValidate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemUsers(), "test-secret")

	reg, err := svc.Register(ctx, "ada@example.com", "correct-horse", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !strings.HasPrefix(reg.User.ID, "user_") {
		t.Errorf("user id %q lacks user_ prefix", reg.User.ID)
	}

	if _, err := svc.Register(ctx, "ada@example.com", "another-pass", "Ada 2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register = %v, want ErrEmailTaken", err)
	}

	login, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	userID, err := svc.ValidateToken(login.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != reg.User.ID {
		t.Errorf("token subject = %q, want %q", userID, reg.User.ID)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "ada@example.com", "nope-nope"},
		{"unknown email", "bob@example.com", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login = %v, want ErrInvalidCredentials", err)
			}
		})
	}

	u, err := svc.GetUser(ctx, userID)
	if err != nil || u.DisplayName != "Ada" {
		t.Errorf("GetUser = %+v, %v", u, err)
	}
	if _, err := svc.GetUser(ctx, "user_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser missing = %v, want ErrUserNotFound", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewService(newMemUsers(), "test-secret")
	other := NewService(newMemUsers(), "other-secret")

	foreign, _ := other.IssueToken("user_1")

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := NewService(newMemUsers(), "test-secret")
	token, _ := svc.IssueToken("user_42")

	var seen string
	h := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"bad scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/boards", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
	if seen != "user_42" {
		t.Errorf("user in context = %q, want user_42", seen)
	}
}

func TestRegisterHandlerValidation(t *testing.T) {
	h := NewHandler(NewService(newMemUsers(), "test-secret"))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing fields", `{"email":"a@b.c"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.c","password":"short","displayName":"A"}`, http.StatusBadRequest},
		{"ok", `{"email":"a@b.c","password":"long-enough","displayName":"A"}`, http.StatusCreated},
		{"taken", `{"email":"a@b.c","password":"long-enough","displayName":"A"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusCreated {
				var res AuthResult
				if err := json.NewDecoder(rec.Body).Decode(&res); err != nil || res.Token == "" {
					t.Errorf("response = %+v, %v", res, err)
				}
			}
		})
	}
}

func TestAuthenticateFromQuery(t *testing.T) {
	svc := NewService(newMemUsers(), "test-secret")
	token, _ := svc.IssueToken("user_7")

	tests := []struct {
		name   string
		target string
		want   string
		err    error
	}{
		{"valid", "/ws/board/b?token=" + token, "user_7", nil},
		{"missing", "/ws/board/b", "", ErrMissingToken},
		{"bad token", "/ws/board/b?token=nope", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			got, err := svc.Authenticate(req, QueryToken)
			if !errors.Is(err, tt.err) || (tt.err == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("user = %q, want %q", got, tt.want)
			}
		})
	}

	// A header token does not count for the query source.
	req := httptest.NewRequest(http.MethodGet, "/ws/board/b", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if _, err := svc.Authenticate(req, QueryToken); !errors.Is(err, ErrMissingToken) {
		t.Errorf("header token accepted by QueryToken: %v", err)
	}
}

func TestMeHandler(t *testing.T) {
	users := newMemUsers()
	svc := NewService(users, "test-secret")
	reg, err := svc.Register(context.Background(), "ada@example.com", "correct-horse", "Ada")
	if err != nil {
		t.Fatal(err)
	}
	ghost, _ := svc.IssueToken("user_deleted")

	h := svc.AuthMiddleware(http.HandlerFunc(NewHandler(svc).Me))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"signed in", reg.Token, http.StatusOK},
		{"deleted account", ghost, http.StatusNotFound},
		{"bad token", "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				var u User
				if err := json.NewDecoder(rec.Body).Decode(&u); err != nil || u.ID != reg.User.ID {
					t.Errorf("user = %+v, %v", u, err)
				}
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrMissingToken, http.StatusUnauthorized},
		{ErrMalformedAuthz, http.StatusUnauthorized},
		{fmt.Errorf("%w: expired", ErrInvalidToken), http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrEmailTaken, http.StatusConflict},
		{ErrUserNotFound, http.StatusNotFound},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("body = %v, %v", body, err)
			}
		})
	}
}
