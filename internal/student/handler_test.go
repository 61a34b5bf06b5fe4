package student_test

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

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
	"github.com/srms-edu/srms/internal/student"
	_ "github.com/srms-edu/srms/testing"
)

type recordedCall struct {
	ident *shared.Identity
	name  string
	args  []any
}

type stubInvoker struct {
	results map[string]gateway.Result
	err     error
	calls   []recordedCall
}

func (s *stubInvoker) Invoke(ctx context.Context, ident *shared.Identity, name string, args ...any) (gateway.Result, error) {
	s.calls = append(s.calls, recordedCall{ident: ident, name: name, args: args})
	if s.err != nil {
		return gateway.Result{}, s.err
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return gateway.RowsResult(nil), nil
}

func (s *stubInvoker) View(ctx context.Context, ident *shared.Identity, name string, opts ...gateway.ViewOption) (gateway.Result, error) {
	s.calls = append(s.calls, recordedCall{ident: ident, name: name})
	if s.err != nil {
		return gateway.Result{}, s.err
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return gateway.RowsResult(nil), nil
}

func newRouter(stub *stubInvoker, ident *shared.Identity) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := student.NewHandler(logger, stub, "unit-test-key")

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

func studentIdentity() *shared.Identity {
	ref := int64(11)
	return &shared.Identity{Username: "s1", Role: shared.RoleStudent, Clearance: 2, StudentRef: &ref}
}

func get(r chi.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestProfilePinsTargetToSelf(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, studentIdentity())

	res := get(r, "/profile")

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, "sp_view_student_profile", call.name)
	assert.Equal(t, "Student", call.args[0])
	assert.Equal(t, "s1", call.args[1])
	assert.Equal(t, (*int64)(nil), call.args[2], "a student never names a target row")
}

func TestGradesRejectInstructor(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, &shared.Identity{Username: "i1", Role: shared.RoleInstructor})

	res := get(r, "/grades")

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Empty(t, stub.calls)
}

func TestGradesAllowAdminActAs(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, &shared.Identity{Username: "root", Role: shared.RoleAdmin, Clearance: 10})

	res := get(r, "/grades")

	assert.Equal(t, http.StatusOK, res.Code)
	require.Len(t, stub.calls, 1)
	assert.Equal(t, "sp_view_grades", stub.calls[0].name)
}

func TestOwnDataRejectsAdmin(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, &shared.Identity{Username: "root", Role: shared.RoleAdmin, Clearance: 10})

	res := get(r, "/own-data")

	assert.Equal(t, http.StatusForbidden, res.Code, "decrypted personal data is owner-only")
	assert.Empty(t, stub.calls)
}

func TestOwnDataReadsEncryptedView(t *testing.T) {
	rec := gateway.NewRecord(2)
	rec.Set("ssn", "000-00-0000")
	rec.Set("full_name", "S One")
	stub := &stubInvoker{results: map[string]gateway.Result{
		"vw_student_own_data": gateway.RowsResult([]gateway.Record{rec}),
	}}
	r := newRouter(stub, studentIdentity())

	res := get(r, "/own-data")

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	require.Len(t, stub.calls, 1)
	assert.Equal(t, "vw_student_own_data", stub.calls[0].name)
}

func TestEditProfileValidation(t *testing.T) {
	stub := &stubInvoker{}
	r := newRouter(stub, studentIdentity())

	req := httptest.NewRequest(http.MethodPost, "/profile/edit", strings.NewReader(`{"full_name":"","email":"x","department":""}`))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "Full name, email, and department are required.", body["error"])
	assert.Empty(t, stub.calls)
}

func TestAttendanceRemoteRejection(t *testing.T) {
	stub := &stubInvoker{err: &gateway.RemoteError{Message: "No attendance visible for this account."}}
	r := newRouter(stub, studentIdentity())

	res := get(r, "/attendance")

	assert.Equal(t, http.StatusBadRequest, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "No attendance visible for this account.", body["error"])
}

func TestGradesEmptyResultIsEmptyArray(t *testing.T) {
	stub := &stubInvoker{results: map[string]gateway.Result{"sp_view_grades": gateway.RowsResult(nil)}}
	r := newRouter(stub, studentIdentity())

	res := get(r, "/grades")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"rows":[]`)
}
