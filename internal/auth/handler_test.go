package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/srms-edu/srms/internal/auth"
	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
	_ "github.com/srms-edu/srms/testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type invocation struct {
	ident *shared.Identity
	name  string
	args  []any
}

type stubInvoker struct {
	results map[string]gateway.Result
	errs    map[string]error
	calls   []invocation
}

func (s *stubInvoker) Invoke(ctx context.Context, ident *shared.Identity, name string, args ...any) (gateway.Result, error) {
	s.calls = append(s.calls, invocation{ident: ident, name: name, args: args})
	if err, ok := s.errs[name]; ok {
		return gateway.Result{}, err
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return gateway.NoResult(), nil
}

func (s *stubInvoker) View(ctx context.Context, ident *shared.Identity, name string, opts ...gateway.ViewOption) (gateway.Result, error) {
	s.calls = append(s.calls, invocation{ident: ident, name: name})
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return gateway.RowsResult(nil), nil
}

func loginRecord(username string, role shared.Role) gateway.Record {
	rec := gateway.NewRecord(5)
	rec.Set("username", username)
	rec.Set("role", string(role))
	rec.Set("clearance", int64(2))
	rec.Set("student_pk_id", int64(11))
	rec.Set("instructor_id", nil)
	return rec
}

func newAuthRouter(t *testing.T, stub *stubInvoker, ident *shared.Identity) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessionManager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	handler := auth.NewHandler(discardLogger(), auth.NewService(stub), sessionManager)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			if ident != nil && sess.Identity() == nil {
				sess.SetIdentity(*ident)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r, shared.Gate{})
	return r, sessionManager
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestLoginMissingFields(t *testing.T) {
	stub := &stubInvoker{}
	r, _ := newAuthRouter(t, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"  ","password":""}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["error"] != "Missing username/password" {
		t.Fatalf("unexpected message: %v", body["error"])
	}
	if len(stub.calls) != 0 {
		t.Fatalf("validation failures must not reach the remote layer")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	stub := &stubInvoker{results: map[string]gateway.Result{"sp_login": gateway.RowsResult(nil)}}
	r, _ := newAuthRouter(t, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["ok"] != false || body["error"] != "Invalid credentials" {
		t.Fatalf("unexpected envelope: %v", body)
	}
}

func TestLoginSuccess(t *testing.T) {
	stub := &stubInvoker{results: map[string]gateway.Result{
		"sp_login": gateway.RowsResult([]gateway.Record{loginRecord("alice", shared.RoleStudent)}),
	}}
	r, _ := newAuthRouter(t, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"pw"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["ok"] != true || body["redirect"] != "/student" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["username"] != "alice" || user["role"] != "Student" {
		t.Fatalf("unexpected user payload: %v", body["user"])
	}
	if len(stub.calls) != 1 || stub.calls[0].name != "sp_login" || stub.calls[0].ident != nil {
		t.Fatalf("login must invoke sp_login without a bound identity")
	}
}

func TestGuestLogin(t *testing.T) {
	stub := &stubInvoker{}
	r, _ := newAuthRouter(t, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/login/guest", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["redirect"] != "/guest" {
		t.Fatalf("unexpected redirect: %v", body["redirect"])
	}
	if len(stub.calls) != 0 {
		t.Fatalf("guest login must not reach the remote layer")
	}
}

func TestMeWithoutIdentity(t *testing.T) {
	r, _ := newAuthRouter(t, &stubInvoker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if decodeBody(t, res)["error"] != "Not logged in" {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}

func TestMeUpdateValidation(t *testing.T) {
	stub := &stubInvoker{}
	ident := &shared.Identity{Username: "alice", Role: shared.RoleStudent, Clearance: 2}
	r, _ := newAuthRouter(t, stub, ident)

	req := httptest.NewRequest(http.MethodPost, "/me", strings.NewReader(`{"full_name":"","email":"not-an-email"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("invalid input must not reach the remote layer")
	}
}

func TestMeUpdateSuccess(t *testing.T) {
	stub := &stubInvoker{results: map[string]gateway.Result{"sp_edit_my_profile": gateway.NoResult()}}
	ident := &shared.Identity{Username: "alice", Role: shared.RoleStudent, Clearance: 2}
	r, _ := newAuthRouter(t, stub, ident)

	req := httptest.NewRequest(http.MethodPost, "/me", strings.NewReader(`{"full_name":"Alice A","email":"alice@test.local","dob":"2001-05-04"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(stub.calls) != 1 || stub.calls[0].name != "sp_edit_my_profile" {
		t.Fatalf("expected one sp_edit_my_profile call, got %+v", stub.calls)
	}
	if stub.calls[0].ident == nil || stub.calls[0].ident.Username != "alice" {
		t.Fatalf("profile edit must run under the acting identity")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	ident := &shared.Identity{Username: "alice", Role: shared.RoleStudent}
	r, _ := newAuthRouter(t, &stubInvoker{}, ident)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if decodeBody(t, res)["redirect"] != "/login" {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}
