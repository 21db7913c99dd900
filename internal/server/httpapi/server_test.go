package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/auth"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/services"
)

// --- stubs ---

type stubAuthn struct {
	gotLogin  services.LoginRequest
	loginRes  *services.LoginResult
	loginErr  error
	gotToken  string
	gotIP     string
	deleted   int64
	logoutErr error
	ctxErr    error
}

func (s *stubAuthn) Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	s.gotLogin = req
	s.ctxErr = ctx.Err()
	return s.loginRes, s.loginErr
}

func (s *stubAuthn) Logout(ctx context.Context, token, ip string) (int64, error) {
	s.gotToken = token
	s.gotIP = ip
	return s.deleted, s.logoutErr
}

type stubValidator struct {
	users     map[string]*models.User
	err       error
	claimsErr error
	ctxErr    error
}

func (v *stubValidator) Validate(ctx context.Context, token string) (*models.User, error) {
	v.ctxErr = ctx.Err()
	if token == "" {
		return nil, common.ErrorUnauthenticated
	}
	if v.err != nil {
		return nil, v.err
	}
	u, ok := v.users[token]
	if !ok {
		return nil, common.ErrorForbidden
	}
	return u, nil
}

func (v *stubValidator) Claims(token string) (*auth.Claims, error) {
	if v.claimsErr != nil {
		return nil, v.claimsErr
	}
	return &auth.Claims{UserID: v.users[token].ID, Email: v.users[token].Email}, nil
}

type stubProfiles struct {
	user   *models.User
	err    error
	ctxErr error
}

func (p *stubProfiles) Get(ctx context.Context, id int64) (*models.User, error) {
	p.ctxErr = ctx.Err()
	return p.user, p.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// --- helpers ---

var alice = &models.User{
	ID:             1,
	Email:          "alice@example.com",
	PasswordDigest: "$2a$10$secret",
	DisplayName:    "Alice",
	CreatedAt:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	Active:         true,
}

type harness struct {
	srv      *Server
	authn    *stubAuthn
	valid    *stubValidator
	profiles *stubProfiles
	pinger   *stubPinger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, Options{CORSAllowedOrigins: "http://localhost:5173"})
}

func newHarnessWith(t *testing.T, opts Options) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		authn:    &stubAuthn{},
		valid:    &stubValidator{users: map[string]*models.User{"good": alice}},
		profiles: &stubProfiles{user: alice},
		pinger:   &stubPinger{},
	}
	h.srv = NewServer(":0", logging.Discard(), h.authn, h.valid, h.profiles, h.pinger, opts)
	return h
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	m := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

// --- tests ---

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":     "abc",
		"bearer abc":     "abc",
		"  Bearer  abc ": "abc",
		"Basic abc":      "",
		"Bearer":         "",
		"abc":            "",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, bearerToken(in), in)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{common.ErrorInvalidRequest, http.StatusBadRequest},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrorUnauthenticated, http.StatusUnauthorized},
		{common.ErrorForbidden, http.StatusForbidden},
		{common.ErrorInternal, http.StatusInternalServerError},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEqual(t, "surprise", msg)
	}
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	h.authn.loginRes = &services.LoginResult{Token: "tok", User: alice}

	w := h.do(http.MethodPost, "/login", `{"email":"alice@example.com","senha":"123456"}`,
		map[string]string{"User-Agent": "curl/8"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "tok", body["token"])
	user := body["user"].(map[string]any)
	assert.EqualValues(t, 1, user["id"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "Alice", user["nome"])
	assert.NotContains(t, w.Body.String(), "secret")

	assert.Equal(t, "alice@example.com", h.authn.gotLogin.Email)
	assert.Equal(t, "123456", h.authn.gotLogin.Password)
	assert.Equal(t, "curl/8", h.authn.gotLogin.UserAgent)
	assert.NotEmpty(t, h.authn.gotLogin.IPAddress)
	assert.NoError(t, h.authn.ctxErr)
}

func TestLogin_BothPaths(t *testing.T) {
	h := newHarness(t)
	h.authn.loginRes = &services.LoginResult{Token: "tok", User: alice}

	for _, p := range []string{"/login", "/api/auth/login"} {
		w := h.do(http.MethodPost, p, `{"email":"a","senha":"b"}`, nil)
		assert.Equal(t, http.StatusOK, w.Code, p)
	}
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"empty", common.ErrorInvalidRequest, http.StatusBadRequest, "email and password are required"},
		{"bad credentials", common.ErrorUnauthorized, http.StatusUnauthorized, "invalid email or password"},
		{"internal", common.ErrorInternal, http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.authn.loginErr = tt.err

			w := h.do(http.MethodPost, "/login", `{"email":"a@b.c","senha":"x"}`, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["error"])
		})
	}
}

func TestLogin_MalformedBodyReachesAuthenticatorEmpty(t *testing.T) {
	h := newHarness(t)
	h.authn.loginErr = common.ErrorInvalidRequest

	w := h.do(http.MethodPost, "/login", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.authn.gotLogin.Email)
	assert.Empty(t, h.authn.gotLogin.Password)
}

func TestGuard_MissingAndInvalidToken(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/perfil", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token not provided", decode(t, w)["error"])

	w = h.do(http.MethodGet, "/perfil", "", map[string]string{"Authorization": "Token good"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/perfil", "", bearer("stale"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "invalid or expired token", decode(t, w)["error"])

	h.valid.err = common.ErrorInternal
	w = h.do(http.MethodGet, "/perfil", "", bearer("good"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProfile(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/perfil", "", bearer("good"))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, "Alice", body["nome"])
	assert.Contains(t, body, "criado_em")
	assert.Contains(t, body, "ultimo_acesso")
	assert.NotContains(t, body, "PasswordDigest")
	assert.NotContains(t, w.Body.String(), "$2a$")

	h.profiles.err = common.ErrorForbidden
	w = h.do(http.MethodGet, "/perfil", "", bearer("good"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGuard_IgnoresClientDisconnect(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "/perfil", nil).WithContext(ctx)
	r.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, h.valid.ctxErr)
	assert.NoError(t, h.profiles.ctxErr)
}

func TestClientIP_ForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	h := newHarness(t)
	h.authn.loginErr = common.ErrorUnauthorized

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c","senha":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Forwarded-For", "6.6.6.6")
	r.RemoteAddr = "10.1.2.3:4567"
	h.srv.Handler().ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "10.1.2.3", h.authn.gotLogin.IPAddress)

	r = httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.Header.Set("Authorization", "Bearer good")
	r.Header.Set("X-Forwarded-For", "6.6.6.6")
	r.RemoteAddr = "10.1.2.3:4567"
	h.srv.Handler().ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "10.1.2.3", h.authn.gotIP)
}

func TestClientIP_ForwardedForHonouredFromTrustedProxy(t *testing.T) {
	h := newHarnessWith(t, Options{TrustedProxies: []string{"10.0.0.0/8"}})
	h.authn.loginErr = common.ErrorUnauthorized

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c","senha":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.RemoteAddr = "10.1.2.3:4567"
	h.srv.Handler().ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "203.0.113.7", h.authn.gotLogin.IPAddress)

	r = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c","senha":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.RemoteAddr = "198.51.100.9:4567"
	h.srv.Handler().ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "198.51.100.9", h.authn.gotLogin.IPAddress)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.authn.deleted = 1

	w := h.do(http.MethodPost, "/logout", "", bearer("good"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["deleted"])
	assert.Equal(t, "good", h.authn.gotToken)

	h.authn.deleted = 0
	w = h.do(http.MethodPost, "/api/auth/logout", "", bearer("good"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["deleted"])

	w = h.do(http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.authn.logoutErr = common.ErrorInternal
	w = h.do(http.MethodPost, "/logout", "", bearer("good"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestVerify(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/auth/verify", "", bearer("good"))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["valid"])
	claims := body["claims"].(map[string]any)
	assert.Equal(t, "alice@example.com", claims["email"])

	w = h.do(http.MethodPost, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.valid.claimsErr = common.ErrorForbidden
	w = h.do(http.MethodPost, "/api/auth/verify", "", bearer("good"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OK", body["status"])
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)

	w = h.do(http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "connected", decode(t, w)["database"])

	h.pinger.err = errors.New("conn refused")
	w = h.do(http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "disconnected", decode(t, w)["database"])
	assert.NotContains(t, w.Body.String(), "conn refused")
}

func TestRequestID(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/health", "", map[string]string{requestIDHeader: "abc"})
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))

	w = h.do(http.MethodGet, "/health", "", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestCORS_Preflight(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodOptions, "/login", "", map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Content-Type, Authorization",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = h.do(http.MethodOptions, "/login", "", map[string]string{
		"Origin":                        "http://evil.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsConfig(t *testing.T) {
	_, ok := corsConfig(" , ")
	assert.False(t, ok)

	c, ok := corsConfig("*")
	require.True(t, ok)
	assert.True(t, c.AllowAllOrigins)

	c, ok = corsConfig("http://a, http://b")
	require.True(t, ok)
	assert.Equal(t, []string{"http://a", "http://b"}, c.AllowOrigins)
}

func TestRun_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer("127.0.0.1:0", logging.Discard(), &stubAuthn{}, &stubValidator{}, &stubProfiles{}, stubPinger{},
		Options{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer("256.0.0.1:bad", logging.Discard(), &stubAuthn{}, &stubValidator{}, &stubProfiles{}, stubPinger{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Error(t, srv.Run(ctx))
}

