package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"codepair/api/internal/config"
	"codepair/api/internal/models"
	"codepair/api/internal/service"
)

const testJWTSecret = "test-secret"

// Stub stores embed the service interfaces so each test only fills in
// the methods its route actually reaches; anything else panicking is a
// test bug worth seeing.

type stubSessionStore struct {
	service.SessionStore
	getByID   func(ctx context.Context, id string) (models.Session, error)
	getDetail func(ctx context.Context, id string) (models.SessionDetail, error)
	claim     func(ctx context.Context, id, userID string) error
}

func (s *stubSessionStore) GetByID(ctx context.Context, id string) (models.Session, error) {
	return s.getByID(ctx, id)
}

func (s *stubSessionStore) GetDetail(ctx context.Context, id string) (models.SessionDetail, error) {
	return s.getDetail(ctx, id)
}

func (s *stubSessionStore) ClaimParticipant(ctx context.Context, id, userID string) error {
	return s.claim(ctx, id, userID)
}

type stubUserStore struct {
	service.UserStore
	leaderboard func(ctx context.Context, limit int) ([]models.User, error)
}

func (s *stubUserStore) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	return s.leaderboard(ctx, limit)
}

type stubResolver struct {
	user models.User
	err  error
}

func (r *stubResolver) Resolve(ctx context.Context, externalID string) (models.User, error) {
	return r.user, r.err
}

func newTestRouter(t *testing.T, sessions service.SessionStore, users service.UserStore, resolver *stubResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Identity:    config.IdentityConfig{JWTSecret: testJWTSecret},
	}

	sessionService := service.NewSessionService(sessions, users, nil, nil, zerolog.Nop())
	userService := service.NewUserService(users, nil, 0, zerolog.Nop())

	h := NewHandlerSet(zerolog.Nop(), cfg, sessionService, userService, resolver, nil, nil)

	engine := gin.New()
	h.Register(engine.Group("/api"))
	return engine
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + signed
}

func doRequest(engine *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestProtectedRoutes_RejectMissingToken(t *testing.T) {
	engine := newTestRouter(t, &stubSessionStore{}, &stubUserStore{}, &stubResolver{})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodPost, "/api/sessions"},
		{http.MethodGet, "/api/sessions/active"},
		{http.MethodPost, "/api/sessions/s1/join"},
	} {
		w := doRequest(engine, route.method, route.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", route.method, route.path, w.Code)
		}
	}
}

func TestProtectedRoutes_RejectBadToken(t *testing.T) {
	engine := newTestRouter(t, &stubSessionStore{}, &stubUserStore{}, &stubResolver{})

	w := doRequest(engine, http.MethodGet, "/api/users/me", "Bearer garbage", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMe_ReturnsResolvedProfile(t *testing.T) {
	user := models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada", Email: "ada@example.com", Tier: models.TierFree}
	engine := newTestRouter(t, &stubSessionStore{}, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodGet, "/api/users/me", bearerToken(t, "ext-1"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var resp struct {
		User profileResponse `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.User.ID != "u1" || resp.User.Name != "Ada" {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestLeaderboard_NoAuthRequired(t *testing.T) {
	users := &stubUserStore{
		leaderboard: func(ctx context.Context, limit int) ([]models.User, error) {
			if limit != 20 {
				t.Errorf("limit = %d, want 20", limit)
			}
			return []models.User{
				{ID: "u1", Name: "Ada", Email: "ada@example.com", ProblemsSolved: 5},
				{ID: "u2", Name: "Grace", Email: "grace@example.com", ProblemsSolved: 3},
			}, nil
		},
	}
	engine := newTestRouter(t, &stubSessionStore{}, users, &stubResolver{})

	w := doRequest(engine, http.MethodGet, "/api/users/leaderboard", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Users []models.PublicUser `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Users) != 2 || resp.Users[0].ProblemsSolved != 5 {
		t.Errorf("users = %+v", resp.Users)
	}
}

func TestCreateSession_MissingFieldsIs400(t *testing.T) {
	user := models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada"}
	engine := newTestRouter(t, &stubSessionStore{}, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodPost, "/api/sessions", bearerToken(t, "ext-1"), `{"problem":"","difficulty":"Easy"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body)
	}
}

func TestJoinSession_FullIs409(t *testing.T) {
	user := models.User{ID: "u2", ExternalID: "ext-2", Name: "Grace"}
	participant := "u3"
	sessions := &stubSessionStore{
		getByID: func(ctx context.Context, id string) (models.Session, error) {
			return models.Session{
				ID:            id,
				CallID:        "session_1_abc",
				Status:        models.SessionStatusActive,
				HostID:        "u1",
				ParticipantID: &participant,
			}, nil
		},
	}
	engine := newTestRouter(t, sessions, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodPost, "/api/sessions/s1/join", bearerToken(t, "ext-2"), "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body)
	}
}

func TestJoinSession_AsHostIs400(t *testing.T) {
	user := models.User{ID: "u1", ExternalID: "ext-1", Name: "Ada"}
	sessions := &stubSessionStore{
		getByID: func(ctx context.Context, id string) (models.Session, error) {
			return models.Session{ID: id, Status: models.SessionStatusActive, HostID: "u1"}, nil
		},
	}
	engine := newTestRouter(t, sessions, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodPost, "/api/sessions/s1/join", bearerToken(t, "ext-1"), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body)
	}
}

func TestEndSession_NonHostIs403(t *testing.T) {
	user := models.User{ID: "u2", ExternalID: "ext-2", Name: "Grace"}
	sessions := &stubSessionStore{
		getByID: func(ctx context.Context, id string) (models.Session, error) {
			return models.Session{ID: id, Status: models.SessionStatusActive, HostID: "u1"}, nil
		},
	}
	engine := newTestRouter(t, sessions, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodPost, "/api/sessions/s1/end", bearerToken(t, "ext-2"), "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", w.Code, w.Body)
	}
}

func TestSessionByID_UnknownIs404(t *testing.T) {
	user := models.User{ID: "u1", ExternalID: "ext-1"}
	sessions := &stubSessionStore{
		getDetail: func(ctx context.Context, id string) (models.SessionDetail, error) {
			return models.SessionDetail{}, service.ErrSessionNotFound
		},
	}
	engine := newTestRouter(t, sessions, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodGet, "/api/sessions/missing", bearerToken(t, "ext-1"), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body)
	}
}

func TestUpgrade_ShortTransactionIs400(t *testing.T) {
	user := models.User{ID: "u1", ExternalID: "ext-1"}
	engine := newTestRouter(t, &stubSessionStore{}, &stubUserStore{}, &stubResolver{user: user})

	w := doRequest(engine, http.MethodPost, "/api/users/upgrade", bearerToken(t, "ext-1"), `{"transactionId":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body)
	}
}
