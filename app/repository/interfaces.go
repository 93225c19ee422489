package repository

import (
	"context"

	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	UpdatePlan(userID uint, plan string, subscriptionRef string) error
	SetStripeCustomerID(userID uint, customerID string) error
	AddStorageUsed(userID uint, delta int64) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// LedgerRepository is the durable credit ledger. ApplyDelta is the only way
// any component may change a balance: it locks the user row, re-checks the
// balance floor and appends the ledger entry in one transaction, so
// concurrent spends against the same account serialize in the database, not
// in the process.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID uint) (int, error)
	ApplyDelta(ctx context.Context, userID uint, amount int, reason, referenceID string) (int, error)
	ListRecent(userID uint, offset, limit int) ([]models.CreditTransaction, error)
}

// GenerationAttemptRepository persists generation audit records.
type GenerationAttemptRepository interface {
	Create(attempt *models.GenerationAttempt) error
	GetByUUID(uuid string) (*models.GenerationAttempt, error)
	MarkCompleted(id uint, status, errorDetail string, durationMs int64) error
	ListByUser(userID uint, offset, limit int) ([]models.GenerationAttempt, error)
}

// ProjectRepository defines the interface for project-related database operations
type ProjectRepository interface {
	Create(project *models.Project) error
	GetByUUID(uuid string) (*models.Project, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Project, error)
	Update(project *models.Project) error
	Delete(id uint) error
	AddStorageUsed(id uint, delta int64) error
	CountByUserID(userID uint) (int64, error)
}

// MediaRepository defines the interface for media file records
type MediaRepository interface {
	Create(file *models.MediaFile) error
	GetByUUID(uuid string) (*models.MediaFile, error)
	ListByEntity(projectID uint, entityType, entityID string) ([]models.MediaFile, error)
	ListByProject(projectID uint) ([]models.MediaFile, error)
	Delete(id uint) error
}

// APIKeyRepository stores per-user generation provider keys.
type APIKeyRepository interface {
	Upsert(key *models.UserAPIKey) error
	GetByUserAndProvider(userID uint, provider string) (*models.UserAPIKey, error)
	Invalidate(userID uint, provider string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Ledger     LedgerRepository
	Generation GenerationAttemptRepository
	Project    ProjectRepository
	Media      MediaRepository
	APIKey     APIKeyRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Ledger:     NewLedgerRepository(db),
		Generation: NewGenerationAttemptRepository(db),
		Project:    NewProjectRepository(db),
		Media:      NewMediaRepository(db),
		APIKey:     NewAPIKeyRepository(db),
	}
}
