package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
	"github.com/xaenox/safeguard/internal/storage"
	"github.com/xaenox/safeguard/internal/verifier"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubVerifier struct {
	mu      sync.Mutex
	result  verifier.Verification
	calls   int
	message string
	recent  []models.ContextTurn
}

func (s *stubVerifier) Verify(ctx context.Context, message, concernType string, recent []models.ContextTurn) verifier.Verification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.message = message
	s.recent = recent
	return s.result
}

func (s *stubVerifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []models.Alert
	fail   bool
}

func (d *recordingDispatcher) Send(ctx context.Context, a models.Alert) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, a)
	return !d.fail
}

func (d *recordingDispatcher) Sent() []models.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Alert(nil), d.alerts...)
}

var room = models.Room{ID: "room-1", Name: "Period 3 Biology", TeacherID: "teacher-1"}

type fixture struct {
	store    *storage.MemoryStorage
	verifier *stubVerifier
	alerts   *recordingDispatcher
	coord    *Coordinator
	base     time.Time
}

func newFixture(t *testing.T, result verifier.Verification) *fixture {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemoryStorage(zap.NewNop())
	require.NoError(t, store.SaveProfile(ctx, &models.Profile{
		ID: "teacher-1", Email: "rivera@school.test", DisplayName: "Ms. Rivera", Role: models.RoleTeacher,
	}))
	require.NoError(t, store.SaveProfile(ctx, &models.Profile{
		ID: "student-1", DisplayName: "Sam", Role: models.RoleLearner,
	}))

	v := &stubVerifier{result: result}
	d := &recordingDispatcher{}
	return &fixture{
		store:    store,
		verifier: v,
		alerts:   d,
		coord:    NewCoordinator(store, v, d, "https://school.test/", zap.NewNop()),
		base:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) save(t *testing.T, id, content string, offset time.Duration) Request {
	t.Helper()
	require.NoError(t, f.store.SaveMessage(context.Background(), &models.Message{
		ID:        id,
		RoomID:    room.ID,
		AuthorID:  "student-1",
		ChatbotID: "bot-1",
		Role:      models.RoleLearner,
		Content:   content,
		CreatedAt: f.base.Add(offset),
	}))
	return Request{Message: content, MessageID: id, StudentID: "student-1", Room: room}
}

var severe = verifier.Verification{IsRealConcern: true, ConcernLevel: 4, AnalysisExplanation: "Direct statement of intent to self-harm."}

func TestProcessFlagsAndAlerts(t *testing.T) {
	f := newFixture(t, severe)
	req := f.save(t, "m1", "I want to hurt myself", 0)

	outcome := f.coord.Process(context.Background(), req)
	require.Equal(t, OutcomeFlagged, outcome)

	flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	flag := flags[0]
	assert.Equal(t, "m1", flag.MessageID)
	assert.Equal(t, "student-1", flag.StudentID)
	assert.Equal(t, "teacher-1", flag.TeacherID)
	assert.Equal(t, "room-1", flag.RoomID)
	assert.Equal(t, "self_harm_language", flag.ConcernType)
	assert.Equal(t, 4, flag.ConcernLevel)
	assert.Equal(t, models.FlagPending, flag.Status)

	sent := f.alerts.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, models.Alert{
		TeacherEmail:       "rivera@school.test",
		StudentDisplayName: "Sam",
		RoomName:           "Period 3 Biology",
		ConcernType:        "self_harm_language",
		ConcernLevel:       4,
		MessageExcerpt:     "I want to hurt myself",
		ReviewURL:          "https://school.test/teacher/concerns/" + flag.ID,
	}, sent[0])
}

func TestProcessNoConcernSkipsVerifier(t *testing.T) {
	f := newFixture(t, severe)
	req := f.save(t, "m1", "Can you help me with photosynthesis?", 0)

	assert.Equal(t, OutcomeNoConcern, f.coord.Process(context.Background(), req))
	assert.Zero(t, f.verifier.Calls())
	assert.Empty(t, f.alerts.Sent())
}

func TestProcessThreshold(t *testing.T) {
	tests := []struct {
		name    string
		result  verifier.Verification
		outcome Outcome
	}{
		{"not real", verifier.Verification{IsRealConcern: false, ConcernLevel: 5, AnalysisExplanation: "Song lyrics."}, OutcomeNotConfirmed},
		{"level 2", verifier.Verification{IsRealConcern: true, ConcernLevel: 2, AnalysisExplanation: "Mild frustration."}, OutcomeBelowThreshold},
		{"level 3", verifier.Verification{IsRealConcern: true, ConcernLevel: 3, AnalysisExplanation: "Worrying."}, OutcomeFlagged},
		{"verifier failure", verifier.Verification{}, OutcomeNotConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.result)
			req := f.save(t, "m1", "I want to hurt myself", 0)

			assert.Equal(t, tt.outcome, f.coord.Process(context.Background(), req))

			flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
			require.NoError(t, err)
			if tt.outcome.Flagged() {
				assert.Len(t, flags, 1)
				assert.Len(t, f.alerts.Sent(), 1)
			} else {
				assert.Empty(t, flags)
				assert.Empty(t, f.alerts.Sent())
			}
		})
	}
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestProcessVerifierTimeoutCreatesNoFlag(t *testing.T) {
	f := newFixture(t, severe)
	coord := NewCoordinator(f.store, verifier.New(blockingCompleter{}, 20*time.Millisecond, zap.NewNop()),
		f.alerts, "https://school.test", zap.NewNop())
	req := f.save(t, "m1", "I want to hurt myself", 0)

	var outcome Outcome
	require.NotPanics(t, func() {
		outcome = coord.Process(context.Background(), req)
	})
	assert.Equal(t, OutcomeNotConfirmed, outcome)

	flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
	require.NoError(t, err)
	assert.Empty(t, flags)
	assert.Empty(t, f.alerts.Sent())
}

func TestProcessTwiceCreatesOneFlag(t *testing.T) {
	f := newFixture(t, severe)
	req := f.save(t, "m1", "I want to hurt myself", 0)

	assert.Equal(t, OutcomeFlagged, f.coord.Process(context.Background(), req))
	assert.Equal(t, OutcomeDuplicate, f.coord.Process(context.Background(), req))

	flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	assert.Len(t, f.alerts.Sent(), 1)
}

func TestProcessConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, severe)
	req := f.save(t, "m1", "I want to hurt myself", 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.coord.Process(context.Background(), req)
		}()
	}
	wg.Wait()

	flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	assert.Len(t, f.alerts.Sent(), 1)
}

func TestProcessMissingMessageAborts(t *testing.T) {
	f := newFixture(t, severe)
	req := Request{Message: "I want to hurt myself", MessageID: "never-stored", StudentID: "student-1", Room: room}

	assert.Equal(t, OutcomeMetadataError, f.coord.Process(context.Background(), req))
	assert.Zero(t, f.verifier.Calls())
	assert.Empty(t, f.alerts.Sent())
}

func TestProcessPassesPriorTurnsOldestFirst(t *testing.T) {
	f := newFixture(t, severe)
	f.save(t, "m1", "first", 0)
	f.save(t, "m2", "second", time.Second)
	f.save(t, "m3", "third", 2*time.Second)
	req := f.save(t, "m4", "I want to hurt myself", 3*time.Second)
	f.save(t, "m5", "later", 4*time.Second)

	f.coord.Process(context.Background(), req)

	require.Len(t, f.verifier.recent, 2)
	assert.Equal(t, "second", f.verifier.recent[0].Content)
	assert.Equal(t, "third", f.verifier.recent[1].Content)
	assert.Equal(t, "I want to hurt myself", f.verifier.message)
}

func TestProcessProfileFailureKeepsFlag(t *testing.T) {
	f := newFixture(t, severe)
	req := f.save(t, "m1", "I want to hurt myself", 0)
	req.StudentID = "unknown-student"

	assert.Equal(t, OutcomeFlaggedNoAlert, f.coord.Process(context.Background(), req))

	flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	assert.Empty(t, f.alerts.Sent())
}

func TestProcessAlertFailureKeepsFlag(t *testing.T) {
	f := newFixture(t, severe)
	f.alerts.fail = true
	req := f.save(t, "m1", "I want to hurt myself", 0)

	assert.Equal(t, OutcomeAlertFailed, f.coord.Process(context.Background(), req))

	flags, err := f.store.ListFlags(context.Background(), storage.FlagFilter{})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, models.FlagPending, flags[0].Status)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "flagged", OutcomeFlagged.String())
	assert.Equal(t, "duplicate", OutcomeDuplicate.String())
	assert.Equal(t, "outcome(99)", Outcome(99).String())
}
