package shared_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/srms-edu/srms/internal/shared"
)

func TestQueryInt64Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/attendance", nil)
	v, err := shared.QueryInt64(req, "course_id")
	if err != nil {
		t.Fatalf("absent parameter should not error: %v", err)
	}
	if v != nil {
		t.Fatalf("absent parameter should yield nil, got %d", *v)
	}
}

func TestQueryInt64Malformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/attendance?course_id=abc", nil)
	if _, err := shared.QueryInt64(req, "course_id"); err == nil {
		t.Fatalf("malformed parameter must be rejected, not treated as no filter")
	} else if err.Error() != "course_id must be a number" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestQueryInt64Value(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/attendance?course_id=%2042%20", nil)
	v, err := shared.QueryInt64(req, "course_id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || *v != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestRequireQueryInt64Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/grades", nil)
	if _, err := shared.RequireQueryInt64(req, "course_id"); err == nil {
		t.Fatalf("missing mandatory parameter must error")
	} else if err.Error() != "Missing course_id" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
