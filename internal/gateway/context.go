package gateway

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/srms-edu/srms/internal/shared"
)

// Ambient settings consulted by database-side row-level policies.
const (
	settingUsername   = "app.username"
	settingClearance  = "app.clearance"
	settingStudentRef = "app.student_ref"
)

type contextBinder interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// bindSessionContext pushes the acting identity into the transaction's local
// settings. All three fields are reset to neutral values first and only then
// overwritten, so a pooled connection can never leak the previous request's
// identity into a call that runs without an identity of its own.
func bindSessionContext(ctx context.Context, q contextBinder, ident *shared.Identity) error {
	neutral := [...][2]string{
		{settingUsername, ""},
		{settingClearance, "0"},
		{settingStudentRef, ""},
	}
	for _, kv := range neutral {
		if _, err := q.Exec(ctx, "SELECT set_config($1, $2, true)", kv[0], kv[1]); err != nil {
			return err
		}
	}
	if ident == nil {
		return nil
	}

	studentRef := ""
	if ident.StudentRef != nil {
		studentRef = strconv.FormatInt(*ident.StudentRef, 10)
	}
	actual := [...][2]string{
		{settingUsername, ident.Username},
		{settingClearance, strconv.Itoa(ident.Clearance)},
		{settingStudentRef, studentRef},
	}
	for _, kv := range actual {
		if _, err := q.Exec(ctx, "SELECT set_config($1, $2, true)", kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}
