// Package escalation runs the out-of-band welfare pipeline for one learner
// message: detect, verify, persist a flag and alert the teacher.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/alert"
	"github.com/xaenox/safeguard/internal/detector"
	"github.com/xaenox/safeguard/internal/models"
	"github.com/xaenox/safeguard/internal/storage"
	"github.com/xaenox/safeguard/internal/verifier"
)

// ConcernThreshold is the minimum verified level that produces a flag.
const ConcernThreshold = 3

const actor = "escalation-coordinator"

// Request is everything the ingestion path hands over for one stored message.
type Request struct {
	Message   string
	MessageID string
	StudentID string
	Room      models.Room
}

type Outcome int

const (
	OutcomeMetadataError Outcome = iota
	OutcomeNoConcern
	OutcomeNotConfirmed
	OutcomeBelowThreshold
	OutcomeFlagStoreError
	OutcomeDuplicate
	OutcomeFlaggedNoAlert
	OutcomeAlertFailed
	OutcomeFlagged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMetadataError:
		return "metadata_error"
	case OutcomeNoConcern:
		return "no_concern"
	case OutcomeNotConfirmed:
		return "not_confirmed"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomeFlagStoreError:
		return "flag_store_error"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFlaggedNoAlert:
		return "flagged_no_alert"
	case OutcomeAlertFailed:
		return "alert_failed"
	case OutcomeFlagged:
		return "flagged"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Flagged reports whether a flag was persisted by this run.
func (o Outcome) Flagged() bool {
	return o == OutcomeFlagged || o == OutcomeAlertFailed || o == OutcomeFlaggedNoAlert
}

// ConcernVerifier is satisfied by *verifier.Verifier.
type ConcernVerifier interface {
	Verify(ctx context.Context, message, concernType string, recent []models.ContextTurn) verifier.Verification
}

type Coordinator struct {
	messages      storage.MessageReader
	profiles      storage.ProfileDirectory
	flags         storage.FlagStore
	verifier      ConcernVerifier
	alerts        alert.Dispatcher
	reviewBaseURL string
	scope         storage.AdminScope
	logger        *zap.Logger
}

func NewCoordinator(
	store storage.Storage,
	v ConcernVerifier,
	alerts alert.Dispatcher,
	reviewBaseURL string,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		messages:      store,
		profiles:      store,
		flags:         store,
		verifier:      v,
		alerts:        alerts,
		reviewBaseURL: strings.TrimRight(reviewBaseURL, "/"),
		scope:         storage.Elevate(actor),
		logger:        logger,
	}
}

// Process never returns an error. Every failure is logged here and ends the
// run for this message only.
func (c *Coordinator) Process(ctx context.Context, req Request) Outcome {
	log := c.logger.With(
		zap.String("message_id", req.MessageID),
		zap.String("student_id", req.StudentID),
		zap.String("room_id", req.Room.ID))

	meta, err := c.messages.GetMessage(ctx, c.scope, req.MessageID)
	if err != nil {
		log.Error("Failed to load message metadata",
			zap.Error(err),
			zap.String("severity", "critical"))
		return OutcomeMetadataError
	}

	signal := detector.Detect(req.Message)
	if !signal.HasConcern {
		return OutcomeNoConcern
	}
	log = log.With(zap.String("concern_type", signal.ConcernType))
	log.Info("Potential concern detected")

	recent := c.recentContext(ctx, meta, log)

	result := c.verifier.Verify(ctx, req.Message, signal.ConcernType, recent)
	if !result.IsRealConcern {
		log.Info("Concern not confirmed")
		return OutcomeNotConfirmed
	}
	if result.ConcernLevel < ConcernThreshold {
		log.Info("Concern below threshold", zap.Int("concern_level", result.ConcernLevel))
		return OutcomeBelowThreshold
	}

	flag := &models.Flag{
		MessageID:           req.MessageID,
		StudentID:           req.StudentID,
		TeacherID:           req.Room.TeacherID,
		RoomID:              req.Room.ID,
		ConcernType:         signal.ConcernType,
		ConcernLevel:        result.ConcernLevel,
		AnalysisExplanation: result.AnalysisExplanation,
		Status:              models.FlagPending,
	}

	flagID, err := c.flags.InsertFlag(ctx, c.scope, flag)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateFlag) {
			log.Info("Flag already exists for message")
			return OutcomeDuplicate
		}
		log.Error("Failed to insert flag",
			zap.Error(err),
			zap.String("severity", "critical"))
		return OutcomeFlagStoreError
	}
	log = log.With(zap.String("flag_id", flagID), zap.Int("concern_level", result.ConcernLevel))

	teacher, student, err := c.resolveProfiles(ctx, req)
	if err != nil {
		log.Error("Failed to resolve profiles, alert skipped", zap.Error(err))
		return OutcomeFlaggedNoAlert
	}

	sent := c.alerts.Send(ctx, models.Alert{
		TeacherEmail:       teacher.Email,
		StudentDisplayName: student.DisplayName,
		RoomName:           req.Room.Name,
		ConcernType:        signal.ConcernType,
		ConcernLevel:       result.ConcernLevel,
		MessageExcerpt:     alert.Excerpt(req.Message),
		ReviewURL:          c.ReviewURL(flagID),
	})
	if !sent {
		log.Warn("Flag persisted but alert was not delivered")
		return OutcomeAlertFailed
	}

	log.Info("Concern flagged and teacher alerted")
	return OutcomeFlagged
}

// ReviewURL is the dashboard link for one flag.
func (c *Coordinator) ReviewURL(flagID string) string {
	return fmt.Sprintf("%s/teacher/concerns/%s", c.reviewBaseURL, flagID)
}

// recentContext returns up to verifier.MaxContextTurns prior turns, oldest
// first. Errors degrade to no context.
func (c *Coordinator) recentContext(ctx context.Context, meta *models.Message, log *zap.Logger) []models.ContextTurn {
	prior, err := c.messages.RecentMessages(ctx, c.scope, storage.RecentQuery{
		RoomID:    meta.RoomID,
		AuthorID:  meta.AuthorID,
		ChatbotID: meta.ChatbotID,
		Before:    meta.CreatedAt,
		Limit:     verifier.MaxContextTurns,
	})
	if err != nil {
		log.Error("Failed to load conversation context",
			zap.Error(err),
			zap.String("severity", "critical"))
		return nil
	}

	turns := make([]models.ContextTurn, 0, len(prior))
	for i := len(prior) - 1; i >= 0; i-- {
		turns = append(turns, models.ContextTurn{Role: prior[i].Role, Content: prior[i].Content})
	}
	return turns
}

func (c *Coordinator) resolveProfiles(ctx context.Context, req Request) (*models.Profile, *models.Profile, error) {
	teacher, err := c.profiles.GetProfile(ctx, c.scope, req.Room.TeacherID)
	if err != nil {
		return nil, nil, fmt.Errorf("teacher %q: %w", req.Room.TeacherID, err)
	}
	if teacher.Email == "" {
		return nil, nil, fmt.Errorf("teacher %q has no email", req.Room.TeacherID)
	}

	student, err := c.profiles.GetProfile(ctx, c.scope, req.StudentID)
	if err != nil {
		return nil, nil, fmt.Errorf("student %q: %w", req.StudentID, err)
	}
	return teacher, student, nil
}
