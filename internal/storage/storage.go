package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/safeguard/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateFlag = errors.New("flag already exists for message")
	ErrNotElevated   = errors.New("elevated access required")
	ErrInvalidStatus = errors.New("invalid flag status")
)

// AdminScope is the explicit capability for reads and writes that bypass the
// authoring student's own access scope. Its zero value grants nothing.
type AdminScope struct {
	actor string
}

// Elevate returns a scope attributed to actor, which is logged on every
// privileged write.
func Elevate(actor string) AdminScope {
	return AdminScope{actor: actor}
}

func (s AdminScope) Actor() string { return s.actor }

func (s AdminScope) check() error {
	if s.actor == "" {
		return ErrNotElevated
	}
	return nil
}

type FlagFilter struct {
	TeacherID string
	Status    models.FlagStatus
}

// FlagStore persists confirmed concerns. InsertFlag must enforce at most one
// flag per message id at the store level.
type FlagStore interface {
	InsertFlag(ctx context.Context, scope AdminScope, flag *models.Flag) (string, error)
	GetFlag(ctx context.Context, id string) (*models.Flag, error)
	ListFlags(ctx context.Context, filter FlagFilter) ([]*models.Flag, error)
	ReviewFlag(ctx context.Context, id string, status models.FlagStatus, notes string) (*models.Flag, error)
}

type RecentQuery struct {
	RoomID    string
	AuthorID  string
	ChatbotID string
	Before    time.Time
	Limit     int
}

type MessageReader interface {
	GetMessage(ctx context.Context, scope AdminScope, id string) (*models.Message, error)
	// RecentMessages returns messages created strictly before q.Before, newest first.
	RecentMessages(ctx context.Context, scope AdminScope, q RecentQuery) ([]*models.Message, error)
}

type MessageWriter interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
}

type ProfileDirectory interface {
	GetProfile(ctx context.Context, scope AdminScope, id string) (*models.Profile, error)
}

type ProfileWriter interface {
	SaveProfile(ctx context.Context, p *models.Profile) error
}

type Storage interface {
	FlagStore
	MessageReader
	MessageWriter
	ProfileDirectory
	ProfileWriter
	Close() error
}
