package ports

import (
	"context"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

// AuthService handles operator registration and login.
type AuthService interface {
	Register(ctx context.Context, username, password, role string) (*domain.Operator, error)
	Login(ctx context.Context, username, password string) (string, *domain.Operator, error)
}

// OperatorRepository persists operator accounts.
type OperatorRepository interface {
	Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error)
	FindByUsername(ctx context.Context, username string) (*domain.Operator, error)
}
