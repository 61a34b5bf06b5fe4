package auth

import (
	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// identityFromRecord maps a credential-check row onto the session identity.
// Expected columns: username, role, clearance, student_pk_id, instructor_id.
func identityFromRecord(record gateway.Record) (*shared.Identity, bool) {
	username, ok := record.String("username")
	if !ok || username == "" {
		return nil, false
	}
	roleName, _ := record.String("role")
	role, ok := shared.ParseRole(roleName)
	if !ok {
		return nil, false
	}

	ident := &shared.Identity{Username: username, Role: role}
	if clearance, ok := record.Int("clearance"); ok {
		ident.Clearance = clearance
	}
	if ref, ok := record.Int64("student_pk_id"); ok {
		ident.StudentRef = &ref
	}
	if id, ok := record.Int64("instructor_id"); ok {
		ident.InstructorID = &id
	}
	return ident, true
}
