package admin

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Service wraps administrative operations. Passwords are hashed here before
// they reach the database; sp_login verifies the same bcrypt hashes with
// pgcrypto's crypt().
type Service struct {
	invoker gateway.Invoker
}

// NewService constructs a Service.
func NewService(invoker gateway.Invoker) *Service {
	return &Service{invoker: invoker}
}

// ListUsers returns every account visible to the admin.
func (s *Service) ListUsers(ctx context.Context, ident *shared.Identity) (gateway.Result, error) {
	return s.invoker.Invoke(ctx, ident, "sp_admin_list_users", ident.Username)
}

// CreateUser provisions a new account with an optional clearance and role
// specific references.
func (s *Service) CreateUser(ctx context.Context, ident *shared.Identity, username, password string, role shared.Role, clearance *int, studentRef, instructorID *int64) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.invoker.Invoke(ctx, ident, "sp_admin_create_user",
		ident.Username, username, string(hash), string(role), clearance, studentRef, instructorID)
	return err
}

// UpdateUserRole changes the target account's role and optionally its
// clearance.
func (s *Service) UpdateUserRole(ctx context.Context, ident *shared.Identity, target string, role shared.Role, clearance *int) error {
	_, err := s.invoker.Invoke(ctx, ident, "sp_admin_update_user_role",
		ident.Username, target, string(role), clearance)
	return err
}

// PendingRoleRequests lists undecided role upgrade requests.
func (s *Service) PendingRoleRequests(ctx context.Context, ident *shared.Identity) (gateway.Result, error) {
	return s.invoker.Invoke(ctx, ident, "sp_get_pending_requests", ident.Username)
}

// ApproveRoleRequest decides a pending request positively. The procedure
// rejects unknown or already decided requests.
func (s *Service) ApproveRoleRequest(ctx context.Context, ident *shared.Identity, requestID int64, comments *string) error {
	_, err := s.invoker.Invoke(ctx, ident, "sp_approve_request", requestID, ident.Username, comments)
	return err
}

// DenyRoleRequest decides a pending request negatively.
func (s *Service) DenyRoleRequest(ctx context.Context, ident *shared.Identity, requestID int64, comments *string) error {
	_, err := s.invoker.Invoke(ctx, ident, "sp_deny_request", requestID, ident.Username, comments)
	return err
}

// AuditLogs returns the newest audit entries, bounded by limit.
func (s *Service) AuditLogs(ctx context.Context, ident *shared.Identity, limit int) (gateway.Result, error) {
	return s.invoker.Invoke(ctx, ident, "sp_get_audit_logs", limit)
}
