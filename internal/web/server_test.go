package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/communication-ltd/portal/internal/gateway"
	"github.com/communication-ltd/portal/internal/session"
)

const testToken = "9f2d1c3e-aaaa-bbbb-cccc-000000000001"

// fakeBackend is a minimal stand-in for the REST backend.
func fakeBackend(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-1","token":"` + testToken + `","status":"ok"}`))
	})
	mux.HandleFunc("/users/user-details", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-1","full_name":"Dana Levi","username":"dana","email":"dana@example.com","phone_number":"","gender":""}`))
	})
	mux.HandleFunc("/users/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func newTestServer(t *testing.T, backend http.Handler) (*Server, func()) {
	t.Helper()
	ts := httptest.NewServer(backend)

	client, err := gateway.New(gateway.Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	mgr, err := session.NewManager(session.ManagerConfig{
		Repository: session.NewMemoryRepository(),
		Backend:    client,
	})
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}
	srv, err := NewServer(Config{
		Backend:      client,
		Sessions:     mgr,
		CookieSecret: []byte("test-secret-at-least-32-bytes-long"),
		Registry:     prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, ts.Close
}

// loginCookie creates a session directly and returns the signed cookie
// the browser would hold.
func loginCookie(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	sess, err := srv.sessions.Create(context.Background(), testToken, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := srv.cookies.Set(rec, sess); err != nil {
		t.Fatalf("Set cookie: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGuardRedirectsWithoutSession(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	defer done()

	for _, path := range []string{"/", "/data-plans", "/customers/new", "/account/profile"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusSeeOther {
			t.Errorf("GET %s: status = %d, want %d", path, rec.Code, http.StatusSeeOther)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("GET %s: Location = %q, want /login", path, loc)
		}
	}
}

func TestLoginSetsCookieAndRedirects(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/login", url.Values{
		"username": {"dana"},
		"password": {"hunter2!"},
	}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "portal_session" {
		t.Fatalf("expected a portal_session cookie, got %v", cookies)
	}
	if cookies[0].Value == "" || strings.Contains(cookies[0].Value, testToken) {
		t.Error("cookie must be set and must not contain the bearer token")
	}

	// The cookie must open the protected pages.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / with cookie: status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dana Levi") {
		t.Error("home page should greet the user by name")
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad credentials"}`, http.StatusUnauthorized)
	})
	srv, done := newTestServer(t, mux)
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/login", url.Values{
		"username": {"dana"},
		"password": {"wrong"},
	}))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "bad credentials") {
		t.Error("login page should show the backend's message")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no session cookie may be set on a failed login")
	}
}

func TestLoginBackendUnreachable(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	done() // backend gone

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/login", url.Values{
		"username": {"dana"},
		"password": {"hunter2!"},
	}))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if !strings.Contains(rec.Body.String(), "could not reach the server") {
		t.Error("login page should show the connectivity message")
	}
}

func TestLoginRateLimited(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	defer done()
	srv.limiter = newLoginLimiter(1, 2)

	form := url.Values{"username": {"dana"}, "password": {"wrong"}}
	var last int
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, postForm("/login", form))
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestServerTextIsEscaped(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/packages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"package_name":"Basic","description":"<script>alert(1)</script>","monthly_price":9.90}]`))
	})
	srv, done := newTestServer(t, backend)
	defer done()

	req := httptest.NewRequest(http.MethodGet, "/data-plans", nil)
	req.AddCookie(loginCookie(t, srv))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("backend text rendered unescaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("backend text should render escaped")
	}
	if !strings.Contains(body, "$9.90") {
		t.Error("monthly price should render as currency")
	}
}

func TestRejectedTokenEndsSession(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/customers/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"token expired"}`, http.StatusUnauthorized)
	})
	srv, done := newTestServer(t, backend)
	defer done()
	cookie := loginCookie(t, srv)

	req := postForm("/customers/search", url.Values{"query": {"dana"}})
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	// The session is gone server-side, the old cookie no longer works.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("reusing the old cookie: status = %d, want redirect", rec.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	defer done()
	cookie := loginCookie(t, srv)

	req := postForm("/logout", url.Values{})
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("logout should expire the cookie, got %v", cleared)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("reusing the old cookie: status = %d, want redirect", rec.Code)
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Error("NewServer without a backend should fail")
	}
}

func TestCookieRejectsTampering(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	defer done()
	cookie := loginCookie(t, srv)
	cookie.Value += "x"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("tampered cookie: status = %d, want redirect", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/users/register", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	srv, done := newTestServer(t, backend)
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/register", url.Values{
		"full_name":        {"Dana Levi"},
		"username":         {"dana"},
		"email":            {"dana@example.com"},
		"password":         {"hunter2!"},
		"confirm_password": {"hunter2!"},
		"accept_terms":     {"on"},
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Account created") {
		t.Error("successful registration should land on the login page with a notice")
	}
}

func TestRegisterBackendRejection(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/users/register", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"username already taken"}`, http.StatusConflict)
	})
	srv, done := newTestServer(t, backend)
	defer done()

	form := url.Values{
		"full_name":        {"Dana Levi"},
		"username":         {"dana"},
		"email":            {"dana@example.com"},
		"password":         {"hunter2!"},
		"confirm_password": {"hunter2!"},
		"accept_terms":     {"on"},
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/register", form))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "username already taken") {
		t.Error("register page should show the backend's message")
	}
	if !strings.Contains(body, `value="dana"`) {
		t.Error("register page should echo the submitted username")
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	srv, done := newTestServer(t, fakeBackend(t))
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/register", url.Values{
		"username":         {"dana"},
		"password":         {"one"},
		"confirm_password": {"two"},
		"accept_terms":     {"on"},
	}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "Passwords do not match") {
		t.Error("register page should flag the password mismatch")
	}
}

func TestForgotPassword(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/users/ask-for-password-reset", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	srv, done := newTestServer(t, backend)
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/forgot-password", url.Values{
		"email": {"dana@example.com"},
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "reset link is on its way") {
		t.Error("forgot-password page should confirm the request")
	}
}

func TestForgotPasswordBackendRejection(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/users/ask-for-password-reset", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"no account for that address"}`, http.StatusNotFound)
	})
	srv, done := newTestServer(t, backend)
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/forgot-password", url.Values{
		"email": {"nobody@example.com"},
	}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "no account for that address") {
		t.Error("forgot-password page should show the backend's message")
	}
}

func TestResetPassword(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/users/confirm-reset-password", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	srv, done := newTestServer(t, backend)
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/reset-password", url.Values{
		"reset_token":      {"reset-123"},
		"new_password":     {"hunter3!"},
		"confirm_password": {"hunter3!"},
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "password has been reset") {
		t.Error("successful reset should land on the login page with a notice")
	}
}

func TestResetPasswordBackendRejection(t *testing.T) {
	backend := fakeBackend(t)
	backend.HandleFunc("/users/confirm-reset-password", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid or expired reset token"}`, http.StatusBadRequest)
	})
	srv, done := newTestServer(t, backend)
	defer done()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postForm("/reset-password", url.Values{
		"reset_token":      {"stale"},
		"new_password":     {"hunter3!"},
		"confirm_password": {"hunter3!"},
	}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "invalid or expired reset token") {
		t.Error("reset page should show the backend's message")
	}
	if !strings.Contains(body, `value="stale"`) {
		t.Error("reset page should keep the submitted token in the form")
	}
}
