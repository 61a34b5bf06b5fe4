package admin_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/srms-edu/srms/internal/admin"
	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
	_ "github.com/srms-edu/srms/testing"
)

type recordedCall struct {
	ident *shared.Identity
	name  string
	args  []any
}

type stubInvoker struct {
	results map[string]gateway.Result
	errs    map[string]error
	calls   []recordedCall
}

func (s *stubInvoker) Invoke(ctx context.Context, ident *shared.Identity, name string, args ...any) (gateway.Result, error) {
	s.calls = append(s.calls, recordedCall{ident: ident, name: name, args: args})
	if err, ok := s.errs[name]; ok {
		return gateway.Result{}, err
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return gateway.NoResult(), nil
}

func (s *stubInvoker) View(ctx context.Context, ident *shared.Identity, name string, opts ...gateway.ViewOption) (gateway.Result, error) {
	s.calls = append(s.calls, recordedCall{ident: ident, name: name})
	return gateway.RowsResult(nil), nil
}

func newRouter(stub *stubInvoker, ident *shared.Identity) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := admin.NewHandler(logger, admin.NewService(stub))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{}
			if ident != nil {
				sess.SetIdentity(*ident)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r, shared.Gate{})
	return r
}

func adminIdentity() *shared.Identity {
	return &shared.Identity{Username: "root", Role: shared.RoleAdmin, Clearance: 10}
}

func envelope(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

func TestInstructorCannotReachAdminRoutes(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, &shared.Identity{Username: "i1", Role: shared.RoleInstructor, Clearance: 5})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code, "no role elevates into Admin")
	assert.Empty(t, stub.calls)
}

func TestCreateUserHashesPassword(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, adminIdentity())

	body := `{"username":"newta","password":"hunter2hunter2","role":"TA","clearance":3}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, "sp_admin_create_user", call.name)
	assert.Equal(t, "root", call.args[0])
	assert.Equal(t, "newta", call.args[1])
	hash, ok := call.args[2].(string)
	require.True(t, ok)
	assert.NotEqual(t, "hunter2hunter2", hash, "plaintext must never reach the database")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2hunter2")))
}

func TestCreateUserShortPassword(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"x","password":"short","role":"TA"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, stub.calls)
}

func TestCreateUserUnknownRole(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"x","password":"longenough","role":"Superuser"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid role.", envelope(t, res)["error"])
	assert.Empty(t, stub.calls)
}

func TestUpdateUserRole(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodPost, "/users/jdoe/role", strings.NewReader(`{"role":"Instructor","clearance":5}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, "sp_admin_update_user_role", call.name)
	assert.Equal(t, "jdoe", call.args[1])
	assert.Equal(t, "Instructor", call.args[2])
}

func TestApproveRoleRequestBadID(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodPost, "/role-requests/abc/approve", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "request id must be an integer.", envelope(t, res)["error"])
	assert.Empty(t, stub.calls)
}

func TestApproveRoleRequestUnknownID(t *testing.T) {
	stub := &stubInvoker{errs: map[string]error{
		"sp_approve_request": &gateway.RemoteError{Message: "Request not found or already decided."},
	}}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodPost, "/role-requests/404/approve", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Request not found or already decided.", envelope(t, res)["error"])
}

func TestDenyRoleRequestWithComments(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodPost, "/role-requests/7/deny", strings.NewReader(`{"comments":"insufficient tenure"}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, "sp_deny_request", call.name)
	assert.Equal(t, int64(7), call.args[0])
	require.NotNil(t, call.args[2])
	assert.Equal(t, "insufficient tenure", *(call.args[2].(*string)))
}

func TestAuditLogsLimit(t *testing.T) {
	stub := &stubInvoker{results: map[string]gateway.Result{"sp_get_audit_logs": gateway.RowsResult(nil)}}
	r := newRouter(stub, adminIdentity())

	req := httptest.NewRequest(http.MethodGet, "/audit?limit=5000", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, stub.calls)

	req = httptest.NewRequest(http.MethodGet, "/audit", nil)
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, stub.calls, 1)
	assert.Equal(t, []any{200}, stub.calls[0].args, "default limit applies")
}
