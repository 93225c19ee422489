package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/credits"
)

// ErrGenerationFailed marks a failure of the external image call itself, as
// opposed to a credit rejection. Failed generations cost nothing.
var ErrGenerationFailed = errors.New("generation failed")

// ErrUnknownAttempt is returned when completing an attempt that was never
// begun.
var ErrUnknownAttempt = errors.New("unknown generation attempt")

// Orchestrator sequences one paid generation: gate on credits, record a
// running attempt, and settle it afterwards. Credits are deducted only when
// the attempt succeeds, with the attempt UUID as the ledger reference, so a
// crashed or retried completion can never double-charge.
type Orchestrator struct {
	attempts repository.GenerationAttemptRepository
	credits  *credits.Service
}

// NewOrchestrator creates a generation orchestrator.
func NewOrchestrator(attempts repository.GenerationAttemptRepository, creditSvc *credits.Service) *Orchestrator {
	return &Orchestrator{attempts: attempts, credits: creditSvc}
}

// BeginAttempt gates the request on the current balance and records a
// running attempt. Nothing is spent here: the balance check is a hint and
// the authoritative rejection happens at completion time inside the ledger.
func (o *Orchestrator) BeginAttempt(ctx context.Context, userID uint, kind, model string, projectID *uint, creditsRequired int) (string, error) {
	if creditsRequired <= 0 {
		return "", fmt.Errorf("begin attempt: %w", credits.ErrInvalidAmount)
	}

	ok, balance, err := o.credits.CheckSufficient(ctx, userID, creditsRequired)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Printf("generation: user %d has %d credits, needs %d", userID, balance, creditsRequired)
		return "", credits.ErrInsufficientCredits
	}

	attempt := &models.GenerationAttempt{
		UUID:            uuid.New().String(),
		UserID:          userID,
		ProjectID:       projectID,
		Kind:            kind,
		Model:           model,
		CreditsReserved: creditsRequired,
		Status:          models.AttemptStatusRunning,
	}
	if err := o.attempts.Create(attempt); err != nil {
		return "", fmt.Errorf("record attempt: %w", err)
	}
	return attempt.UUID, nil
}

// CompleteAttempt settles a running attempt. On success the reserved credits
// are spent with the attempt UUID as reference; on failure the attempt is
// marked failed with the error detail and no credits move. The spend can
// still fail with ErrInsufficientCredits if the balance was drained between
// begin and complete; the attempt is then marked failed too.
func (o *Orchestrator) CompleteAttempt(ctx context.Context, attemptID string, genErr error) error {
	attempt, err := o.attempts.GetByUUID(attemptID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownAttempt, attemptID)
	}
	if attempt.IsTerminal() {
		return nil
	}

	elapsed := time.Since(attempt.CreatedAt).Milliseconds()

	if genErr != nil {
		if markErr := o.attempts.MarkCompleted(attempt.ID, models.AttemptStatusFailed, genErr.Error(), elapsed); markErr != nil {
			return markErr
		}
		return fmt.Errorf("%w: %v", ErrGenerationFailed, genErr)
	}

	if _, err := o.credits.Spend(ctx, attempt.UserID, attempt.CreditsReserved, reasonForKind(attempt.Kind), attempt.UUID); err != nil {
		if markErr := o.attempts.MarkCompleted(attempt.ID, models.AttemptStatusFailed, err.Error(), elapsed); markErr != nil {
			return markErr
		}
		return err
	}
	return o.attempts.MarkCompleted(attempt.ID, models.AttemptStatusSucceeded, "", elapsed)
}

func reasonForKind(kind string) string {
	switch kind {
	case models.GenerationKindStyle:
		return models.CreditReasonStyleGeneration
	case models.GenerationKindAssetRefinement:
		return models.CreditReasonAssetRefinement
	default:
		return models.CreditReasonAssetGeneration
	}
}
