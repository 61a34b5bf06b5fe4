package auth

import (
	"context"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Service wraps authentication and self-service profile flows. Credential
// verification itself lives in the database (bcrypt hashes compared by
// sp_login via pgcrypto); the service only marshals the outcome.
type Service struct {
	invoker gateway.Invoker
}

// NewService constructs a new Service.
func NewService(invoker gateway.Invoker) *Service {
	return &Service{invoker: invoker}
}

// Login validates credentials through sp_login and returns the acting
// identity on success.
func (s *Service) Login(ctx context.Context, username, password string) (*shared.Identity, error) {
	result, err := s.invoker.Invoke(ctx, nil, "sp_login", username, password)
	if err != nil {
		return nil, err
	}
	record, ok := result.First()
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	ident, ok := identityFromRecord(record)
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	return ident, nil
}

// EditOwnProfile updates the acting user's own profile; the procedure
// decides which fields the role may touch.
func (s *Service) EditOwnProfile(ctx context.Context, ident *shared.Identity, fullName, email string, dob, department *string) error {
	_, err := s.invoker.Invoke(ctx, ident, "sp_edit_my_profile",
		string(ident.Role), ident.Username, fullName, email, dob, department)
	return err
}
