package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
)

type MemoryStorage struct {
	mu        sync.RWMutex
	messages  map[string]*models.Message
	profiles  map[string]*models.Profile
	flags     map[string]*models.Flag
	byMessage map[string]string
	logger    *zap.Logger
}

func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{
		messages:  make(map[string]*models.Message),
		profiles:  make(map[string]*models.Profile),
		flags:     make(map[string]*models.Flag),
		byMessage: make(map[string]string),
		logger:    logger,
	}
}

// Message methods
func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	stored := *msg
	s.messages[msg.ID] = &stored
	return nil
}

func (s *MemoryStorage) GetMessage(ctx context.Context, scope AdminScope, id string) (*models.Message, error) {
	if err := scope.check(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (s *MemoryStorage) RecentMessages(ctx context.Context, scope AdminScope, q RecentQuery) ([]*models.Message, error) {
	if err := scope.check(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for _, m := range s.messages {
		if m.RoomID != q.RoomID || m.AuthorID != q.AuthorID || m.ChatbotID != q.ChatbotID {
			continue
		}
		if !m.CreatedAt.Before(q.Before) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Profile methods
func (s *MemoryStorage) SaveProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetProfile(ctx context.Context, scope AdminScope, id string) (*models.Profile, error) {
	if err := scope.check(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

// Flag methods
func (s *MemoryStorage) InsertFlag(ctx context.Context, scope AdminScope, flag *models.Flag) (string, error) {
	if err := scope.check(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMessage[flag.MessageID]; exists {
		return "", ErrDuplicateFlag
	}

	flag.ID = uuid.New().String()
	if flag.Status == "" {
		flag.Status = models.FlagPending
	}
	flag.CreatedAt = time.Now().UTC()

	stored := *flag
	s.flags[flag.ID] = &stored
	s.byMessage[flag.MessageID] = flag.ID

	s.logger.Info("Flag inserted with elevated access",
		zap.String("actor", scope.Actor()),
		zap.String("flag_id", flag.ID),
		zap.String("message_id", flag.MessageID))

	return flag.ID, nil
}

func (s *MemoryStorage) GetFlag(ctx context.Context, id string) (*models.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flags[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *f
	return &out, nil
}

func (s *MemoryStorage) ListFlags(ctx context.Context, filter FlagFilter) ([]*models.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Flag, 0)
	for _, f := range s.flags {
		if filter.TeacherID != "" && f.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) ReviewFlag(ctx context.Context, id string, status models.FlagStatus, notes string) (*models.Flag, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flags[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	f.Status = status
	f.Notes = notes
	f.ReviewedAt = &now

	out := *f
	return &out, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
