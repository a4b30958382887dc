// Package ingest is the entry point for new chat messages. It applies the
// content filter before storage and hands learner messages to escalation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/escalation"
	"github.com/xaenox/safeguard/internal/filter"
	"github.com/xaenox/safeguard/internal/models"
	"github.com/xaenox/safeguard/internal/storage"
)

// DefaultTestRoomPrefix marks rooms teachers create to try their own chatbots.
const DefaultTestRoomPrefix = "teacher_test_"

var ErrEmptyMessage = errors.New("message content is empty")

// Submitter is satisfied by *escalation.Scheduler.
type Submitter interface {
	Submit(req escalation.Request) bool
}

type Incoming struct {
	RoomID    string
	AuthorID  string
	ChatbotID string
	Role      models.Role
	Content   string
	Room      models.Room
}

type Result struct {
	Message   *models.Message `json:"message"`
	Verdict   filter.Verdict  `json:"verdict"`
	Redacted  bool            `json:"redacted"`
	Escalated bool            `json:"escalated"`
}

type Gate struct {
	store          storage.MessageWriter
	scheduler      Submitter
	testRoomPrefix string
	logger         *zap.Logger
}

func NewGate(store storage.MessageWriter, scheduler Submitter, testRoomPrefix string, logger *zap.Logger) *Gate {
	if testRoomPrefix == "" {
		testRoomPrefix = DefaultTestRoomPrefix
	}
	return &Gate{
		store:          store,
		scheduler:      scheduler,
		testRoomPrefix: testRoomPrefix,
		logger:         logger,
	}
}

// Accept filters, stores and, for learners in real rooms, schedules
// escalation. Only storage errors are returned; moderation never fails the call.
func (g *Gate) Accept(ctx context.Context, in Incoming) (*Result, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyMessage
	}
	if in.Room.ID == "" {
		in.Room.ID = in.RoomID
	}

	verdict := filter.Filter(in.Content, in.Room.IsUnder13, in.Room.StrictMode)
	gated := in.Room.IsUnder13 || in.Room.StrictMode

	content := in.Content
	redacted := false
	if verdict.IsBlocked {
		if gated {
			content = verdict.CleanedContent
			redacted = true
		}
		g.logger.Info("Content filter matched",
			zap.String("room_id", in.Room.ID),
			zap.String("author_id", in.AuthorID),
			zap.String("reason", verdict.Reason),
			zap.Bool("redacted", redacted))
		if redacted && verdict.Has(filter.CategoryViolenceSelfHarm) {
			g.logger.Warn("Redacted message carries violent or self-harm content",
				zap.String("room_id", in.Room.ID),
				zap.String("author_id", in.AuthorID),
				zap.Bool("escalation_eligible", g.eligible(in)))
		}
	}

	msg := &models.Message{
		RoomID:    in.Room.ID,
		AuthorID:  in.AuthorID,
		ChatbotID: in.ChatbotID,
		Role:      in.Role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	result := &Result{Message: msg, Verdict: verdict, Redacted: redacted}

	if g.eligible(in) {
		result.Escalated = g.scheduler.Submit(escalation.Request{
			Message:   in.Content,
			MessageID: msg.ID,
			StudentID: in.AuthorID,
			Room:      in.Room,
		})
	}

	return result, nil
}

func (g *Gate) eligible(in Incoming) bool {
	return in.Role == models.RoleLearner && !strings.HasPrefix(in.Room.ID, g.testRoomPrefix)
}
