package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// DefaultCreditGrant is the balance every new account starts with.
const DefaultCreditGrant = 50

// DefaultStorageLimit is 500 MiB, the free tier storage allowance.
const DefaultStorageLimit int64 = 524_288_000

// User is the billing/credit identity for one person. The credit balance is
// never written directly by callers; all changes go through the ledger
// repository so every mutation leaves a CreditTransaction behind.
type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Name                 string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password             string         `gorm:"type:text" json:"-"`
	AvatarURL            string         `gorm:"type:varchar(255);default:null" json:"avatar_url"`
	Role                 string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status               string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Plan                 string         `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	CreditBalance        int            `gorm:"not null;default:0" json:"credit_balance"`
	StorageUsed          int64          `gorm:"not null;default:0" json:"storage_used"`
	StorageLimit         int64          `gorm:"not null;default:524288000" json:"storage_limit"`
	StripeCustomerID     string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	StripeSubscriptionID string         `gorm:"type:varchar(191);default:null" json:"-"`
	LastLoginAt          *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a new user on the free plan with an empty balance. The
// caller persists it and then grants DefaultCreditGrant through the ledger,
// so the signup credits leave a signup_grant entry like any other change.
func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         username,
		Email:        email,
		Password:     pw,
		Role:         ROLE_USER,
		Status:       STATUS_ACTIVE,
		Plan:         "free",
		StorageLimit: DefaultStorageLimit,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}
