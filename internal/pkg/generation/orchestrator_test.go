package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/credits"
	"gorm.io/gorm"
)

type memoryAttempts struct {
	nextID   uint
	attempts map[string]*models.GenerationAttempt
}

func newMemoryAttempts() *memoryAttempts {
	return &memoryAttempts{nextID: 1, attempts: map[string]*models.GenerationAttempt{}}
}

func (m *memoryAttempts) Create(attempt *models.GenerationAttempt) error {
	attempt.ID = m.nextID
	m.nextID++
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	m.attempts[attempt.UUID] = attempt
	return nil
}

func (m *memoryAttempts) GetByUUID(uuid string) (*models.GenerationAttempt, error) {
	if a, ok := m.attempts[uuid]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryAttempts) MarkCompleted(id uint, status, errorDetail string, durationMs int64) error {
	for _, a := range m.attempts {
		if a.ID == id && a.Status == models.AttemptStatusRunning {
			now := time.Now()
			a.Status = status
			a.ErrorDetail = errorDetail
			a.DurationMs = &durationMs
			a.CompletedAt = &now
		}
	}
	return nil
}

func (m *memoryAttempts) ListByUser(userID uint, offset, limit int) ([]models.GenerationAttempt, error) {
	var out []models.GenerationAttempt
	for _, a := range m.attempts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func newOrchestratorFixture(balance int) (*Orchestrator, *memoryAttempts, *repository.MemoryLedger) {
	attempts := newMemoryAttempts()
	ledger := repository.NewMemoryLedger(map[uint]int{1: balance})
	return NewOrchestrator(attempts, credits.NewService(ledger)), attempts, ledger
}

func TestBeginAttemptInsufficientCredits(t *testing.T) {
	orch, attempts, _ := newOrchestratorFixture(10)

	_, err := orch.BeginAttempt(context.Background(), 1, models.GenerationKindStyle, "", nil, 15)
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if len(attempts.attempts) != 0 {
		t.Fatalf("rejected attempt must not be recorded, got %d", len(attempts.attempts))
	}
}

func TestSuccessfulAttemptSpendsOnCompletion(t *testing.T) {
	orch, attempts, ledger := newOrchestratorFixture(50)

	id, err := orch.BeginAttempt(context.Background(), 1, models.GenerationKindStyle, DefaultImageModel, nil, 15)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Nothing is spent while the attempt runs.
	if balance, _ := ledger.GetBalance(context.Background(), 1); balance != 50 {
		t.Fatalf("expected balance 50 while running, got %d", balance)
	}

	if err := orch.CompleteAttempt(context.Background(), id, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if balance, _ := ledger.GetBalance(context.Background(), 1); balance != 35 {
		t.Fatalf("expected balance 35 after success, got %d", balance)
	}
	entries := ledger.Entries(1)
	if len(entries) != 1 || entries[0].Reason != models.CreditReasonStyleGeneration || entries[0].ReferenceID != id {
		t.Fatalf("unexpected ledger entries: %+v", entries)
	}
	attempt, _ := attempts.GetByUUID(id)
	if attempt.Status != models.AttemptStatusSucceeded {
		t.Fatalf("expected succeeded status, got %q", attempt.Status)
	}
}

func TestFailedAttemptCostsNothing(t *testing.T) {
	orch, attempts, ledger := newOrchestratorFixture(50)

	id, err := orch.BeginAttempt(context.Background(), 1, models.GenerationKindAsset, "", nil, 8)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	err = orch.CompleteAttempt(context.Background(), id, errors.New("model returned no image data"))
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	if balance, _ := ledger.GetBalance(context.Background(), 1); balance != 50 {
		t.Fatalf("failed generation must cost nothing, got balance %d", balance)
	}
	attempt, _ := attempts.GetByUUID(id)
	if attempt.Status != models.AttemptStatusFailed || attempt.ErrorDetail == "" {
		t.Fatalf("expected failed attempt with detail, got %+v", attempt)
	}
}

func TestCompleteAttemptIsIdempotent(t *testing.T) {
	orch, _, ledger := newOrchestratorFixture(50)

	id, err := orch.BeginAttempt(context.Background(), 1, models.GenerationKindAssetRefinement, "", nil, 5)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := orch.CompleteAttempt(context.Background(), id, nil); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if err := orch.CompleteAttempt(context.Background(), id, nil); err != nil {
		t.Fatalf("second complete must be a no-op: %v", err)
	}

	if balance, _ := ledger.GetBalance(context.Background(), 1); balance != 45 {
		t.Fatalf("expected single spend to 45, got %d", balance)
	}
	if got := len(ledger.Entries(1)); got != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", got)
	}
}

func TestCompleteAttemptDrainedBalanceFails(t *testing.T) {
	orch, attempts, ledger := newOrchestratorFixture(15)

	id, err := orch.BeginAttempt(context.Background(), 1, models.GenerationKindStyle, "", nil, 15)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Another spend drains the balance while the generation runs.
	if _, err := ledger.ApplyDelta(context.Background(), 1, -10, models.CreditReasonAssetGeneration, "other"); err != nil {
		t.Fatalf("drain: %v", err)
	}

	err = orch.CompleteAttempt(context.Background(), id, nil)
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits at settlement, got %v", err)
	}
	attempt, _ := attempts.GetByUUID(id)
	if attempt.Status != models.AttemptStatusFailed {
		t.Fatalf("expected failed attempt, got %q", attempt.Status)
	}
	if balance, _ := ledger.GetBalance(context.Background(), 1); balance != 5 {
		t.Fatalf("expected balance 5 (only the draining spend), got %d", balance)
	}
}

func TestCompleteUnknownAttempt(t *testing.T) {
	orch, _, _ := newOrchestratorFixture(50)

	err := orch.CompleteAttempt(context.Background(), "no-such-attempt", nil)
	if !errors.Is(err, ErrUnknownAttempt) {
		t.Fatalf("expected ErrUnknownAttempt, got %v", err)
	}
}
