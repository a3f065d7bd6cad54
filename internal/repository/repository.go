package repository

import (
	"context"
	"database/sql"
	"time"

	"home_gateway/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// StateRepo persists the device-state document as a whole. Save overwrites
// any prior contents; Load returns ErrNoState when nothing was ever saved.
type StateRepo interface {
	Save(ctx context.Context, s models.DeviceState) error
	Load(ctx context.Context) (models.DeviceState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.GatewayEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.GatewayEvent, error)
}

type Repository struct {
	State  StateRepo
	Events EventRepo
	Auth   Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		State:  NewStateSQLite(db),
		Events: NewEventSQLite(db),
		Auth:   NewUserRepository(db),
	}
}
