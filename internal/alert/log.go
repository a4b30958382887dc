package alert

import (
	"context"

	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
)

// LogDispatcher only records alerts. It is used when no delivery channel is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, a models.Alert) bool {
	d.logger.Warn("Safety alert",
		zap.String("teacher_email", a.TeacherEmail),
		zap.String("student", a.StudentDisplayName),
		zap.String("room", a.RoomName),
		zap.String("concern_type", a.ConcernType),
		zap.Int("concern_level", a.ConcernLevel),
		zap.String("review_url", a.ReviewURL))
	return true
}
