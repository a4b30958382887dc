package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xaenox/safeguard/internal/escalation"
	"github.com/xaenox/safeguard/internal/models"
	"github.com/xaenox/safeguard/internal/storage"
)

type recordingSubmitter struct {
	requests []escalation.Request
}

func (r *recordingSubmitter) Submit(req escalation.Request) bool {
	r.requests = append(r.requests, req)
	return true
}

func newGate() (*Gate, *storage.MemoryStorage, *recordingSubmitter) {
	store := storage.NewMemoryStorage(zap.NewNop())
	sub := &recordingSubmitter{}
	return NewGate(store, sub, "", zap.NewNop()), store, sub
}

func stored(t *testing.T, store *storage.MemoryStorage, id string) *models.Message {
	t.Helper()
	msg, err := store.GetMessage(context.Background(), storage.Elevate("test"), id)
	require.NoError(t, err)
	return msg
}

func TestAcceptRedactsInUnder13Room(t *testing.T) {
	gate, store, sub := newGate()

	res, err := gate.Accept(context.Background(), Incoming{
		AuthorID: "student-1",
		Role:     models.RoleLearner,
		Content:  "Call me at 555-123-4567",
		Room:     models.Room{ID: "room-1", TeacherID: "teacher-1", IsUnder13: true},
	})
	require.NoError(t, err)

	assert.True(t, res.Redacted)
	assert.True(t, res.Verdict.IsBlocked)
	content := stored(t, store, res.Message.ID).Content
	assert.Contains(t, content, "[PHONE REMOVED]")
	assert.NotContains(t, content, "555-123-4567")

	require.Len(t, sub.requests, 1)
	assert.Equal(t, "Call me at 555-123-4567", sub.requests[0].Message)
	assert.Equal(t, res.Message.ID, sub.requests[0].MessageID)
	assert.Equal(t, "student-1", sub.requests[0].StudentID)
}

func TestAcceptIsAdvisoryInOpenRoom(t *testing.T) {
	gate, store, sub := newGate()

	res, err := gate.Accept(context.Background(), Incoming{
		AuthorID: "student-1",
		Role:     models.RoleLearner,
		Content:  "I want to hurt myself",
		Room:     models.Room{ID: "room-1"},
	})
	require.NoError(t, err)

	assert.True(t, res.Verdict.IsBlocked)
	assert.False(t, res.Redacted)
	assert.Equal(t, "I want to hurt myself", stored(t, store, res.Message.ID).Content)
	require.Len(t, sub.requests, 1)
}

func TestAcceptEscalatesOriginalTextWhenRedacted(t *testing.T) {
	gate, store, sub := newGate()

	res, err := gate.Accept(context.Background(), Incoming{
		AuthorID: "student-1",
		Role:     models.RoleLearner,
		Content:  "I want to hurt myself",
		Room:     models.Room{ID: "room-1", StrictMode: true},
	})
	require.NoError(t, err)

	assert.True(t, res.Redacted)
	assert.NotContains(t, stored(t, store, res.Message.ID).Content, "hurt myself")
	require.Len(t, sub.requests, 1)
	assert.Equal(t, "I want to hurt myself", sub.requests[0].Message)
}

func TestAcceptEscalationEligibility(t *testing.T) {
	tests := []struct {
		name   string
		role   models.Role
		roomID string
		want   bool
	}{
		{"learner in real room", models.RoleLearner, "room-1", true},
		{"teacher", models.RoleTeacher, "room-1", false},
		{"assistant", models.RoleAssistant, "room-1", false},
		{"learner in test room", models.RoleLearner, "teacher_test_abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, _, sub := newGate()

			res, err := gate.Accept(context.Background(), Incoming{
				RoomID:   tt.roomID,
				AuthorID: "author-1",
				Role:     tt.role,
				Content:  "hello there",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Escalated)
			assert.Equal(t, tt.want, len(sub.requests) == 1)
			assert.Equal(t, tt.roomID, res.Message.RoomID)
		})
	}
}

func TestAcceptRejectsEmpty(t *testing.T) {
	gate, _, sub := newGate()

	_, err := gate.Accept(context.Background(), Incoming{Role: models.RoleLearner, Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, sub.requests)
}

type failingWriter struct{}

func (failingWriter) SaveMessage(context.Context, *models.Message) error {
	return errors.New("disk full")
}

func TestAcceptStorageErrorSkipsEscalation(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(failingWriter{}, sub, "", zap.NewNop())

	_, err := gate.Accept(context.Background(), Incoming{
		RoomID: "room-1", AuthorID: "student-1", Role: models.RoleLearner, Content: "hi",
	})
	assert.Error(t, err)
	assert.Empty(t, sub.requests)
}

func TestAcceptWarnsOnRedactedWelfareContent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := storage.NewMemoryStorage(zap.NewNop())
	gate := NewGate(store, &recordingSubmitter{}, "", zap.New(core))

	_, err := gate.Accept(context.Background(), Incoming{
		AuthorID: "student-1",
		Role:     models.RoleLearner,
		Content:  "I want to hurt myself",
		Room:     models.Room{ID: "room-1", IsUnder13: true},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Redacted message carries violent or self-harm content").All()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].ContextMap()["escalation_eligible"])

	_, err = gate.Accept(context.Background(), Incoming{
		AuthorID: "student-1",
		Role:     models.RoleLearner,
		Content:  "My phone number is 555-123-4567",
		Room:     models.Room{ID: "room-1", IsUnder13: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
}
