package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
)

// AdminGuard authorizes callers against their admins/{uid} profile
type AdminGuard struct {
	accounts *repository.AccountRepository
	logger   *logrus.Logger
}

// NewAdminGuard creates a new admin guard
func NewAdminGuard(accounts *repository.AccountRepository, logger *logrus.Logger) *AdminGuard {
	return &AdminGuard{accounts: accounts, logger: logger}
}

// IsAuthorizedAdmin reports whether callerUID has an admin profile with role
// admin or superAdmin. Lookup failures deny.
func (g *AdminGuard) IsAuthorizedAdmin(ctx context.Context, callerUID string) bool {
	_, err := g.RequireAdmin(ctx, callerUID)
	return err == nil
}

// RequireAdmin returns the caller's admin profile or a classified error
func (g *AdminGuard) RequireAdmin(ctx context.Context, callerUID string) (*models.Account, error) {
	if callerUID == "" {
		return nil, NewUnauthenticatedError("The function must be called while authenticated.")
	}

	admin, err := g.accounts.GetAdmin(ctx, callerUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewPermissionDeniedError("Only admins can perform this action.")
	}
	if err != nil {
		g.logger.WithError(err).WithField("caller_uid", callerUID).Error("Failed to read admin profile")
		return nil, NewInternalError("failed to verify caller", err)
	}
	if !admin.Role.IsAdmin() {
		return nil, NewPermissionDeniedError("Only admins can perform this action.")
	}
	return admin, nil
}

// RequireCaller only checks that the request is authenticated
func RequireCaller(callerUID string) error {
	if callerUID == "" {
		return NewUnauthenticatedError("The function must be called while authenticated.")
	}
	return nil
}
