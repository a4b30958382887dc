// Package verifier asks a language model for a contextual second opinion on
// messages the heuristic detector flagged.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/models"
)

const (
	MinConcernLevel = 1
	MaxConcernLevel = 5

	// MaxContextTurns is how many prior turns accompany the flagged message.
	MaxContextTurns = 2
)

// Verification is the model's structured judgement.
type Verification struct {
	IsRealConcern       bool   `json:"isRealConcern"`
	ConcernLevel        int    `json:"concernLevel"`
	AnalysisExplanation string `json:"analysisExplanation"`
}

// Completer sends one system+user prompt pair to a model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Verifier struct {
	completer Completer
	timeout   time.Duration
	logger    *zap.Logger
}

func New(completer Completer, timeout time.Duration, logger *zap.Logger) *Verifier {
	return &Verifier{
		completer: completer,
		timeout:   timeout,
		logger:    logger,
	}
}

// Verify never fails: any call or parse error is logged and reported as
// "not a real concern" so an outage cannot flood teachers or block chat.
func (v *Verifier) Verify(ctx context.Context, message, concernType string, recent []models.ContextTurn) (result Verification) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Concern verification panicked",
				zap.Any("panic", r),
				zap.String("concern_type", concernType))
			result = Verification{}
		}
	}()

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	raw, err := v.completer.Complete(ctx, SystemInstruction, BuildPrompt(message, concernType, recent))
	if err != nil {
		v.logger.Error("Failed to get concern verification",
			zap.Error(err),
			zap.String("concern_type", concernType),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)))
		return Verification{}
	}

	parsed, err := ParseResponse(raw)
	if err != nil {
		v.logger.Error("Failed to parse concern verification",
			zap.Error(err),
			zap.String("concern_type", concernType),
			zap.String("response", raw))
		return Verification{}
	}

	v.logger.Debug("Concern verified",
		zap.String("concern_type", concernType),
		zap.Bool("is_real_concern", parsed.IsRealConcern),
		zap.Int("concern_level", parsed.ConcernLevel))

	return parsed
}

// wireVerification uses pointers so a missing field can be told apart from a zero value.
type wireVerification struct {
	IsRealConcern       *bool   `json:"isRealConcern"`
	ConcernLevel        *int    `json:"concernLevel"`
	AnalysisExplanation *string `json:"analysisExplanation"`
}

// ParseResponse accepts exactly the three verification fields and rejects
// anything else, including out-of-range levels.
func ParseResponse(raw string) (Verification, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.DisallowUnknownFields()

	var w wireVerification
	if err := dec.Decode(&w); err != nil {
		return Verification{}, fmt.Errorf("decode verification: %w", err)
	}
	if dec.More() {
		return Verification{}, errors.New("trailing data after verification object")
	}

	switch {
	case w.IsRealConcern == nil:
		return Verification{}, errors.New("missing isRealConcern")
	case w.ConcernLevel == nil:
		return Verification{}, errors.New("missing concernLevel")
	case w.AnalysisExplanation == nil:
		return Verification{}, errors.New("missing analysisExplanation")
	}

	if strings.TrimSpace(*w.AnalysisExplanation) == "" {
		return Verification{}, errors.New("empty analysisExplanation")
	}
	if *w.ConcernLevel < MinConcernLevel || *w.ConcernLevel > MaxConcernLevel {
		return Verification{}, fmt.Errorf("concernLevel %d out of range", *w.ConcernLevel)
	}

	return Verification{
		IsRealConcern:       *w.IsRealConcern,
		ConcernLevel:        *w.ConcernLevel,
		AnalysisExplanation: strings.TrimSpace(*w.AnalysisExplanation),
	}, nil
}
