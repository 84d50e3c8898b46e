package models

import (
	"time"

	"gorm.io/datatypes"
)

// Account lifecycle states.
const (
	// AccountStatusActive is the initial state of an onboarded account.
	AccountStatusActive = "active"
	// AccountStatusInactive marks a soft-deleted account.
	AccountStatusInactive = "inactive"
)

// Account stores an onboarded cloud account and its encrypted credentials.
type Account struct {
	AccountID    string `gorm:"type:varchar(64);primaryKey"` // Provider-assigned account ID.
	AccountName  string `gorm:"type:text;not null"`          // Display name.
	AccountEmail string `gorm:"type:text"`                   // Optional contact email.
	Region       string `gorm:"type:text;not null"`          // Home region for quota lookups.
	Status       string `gorm:"type:text;not null;index"`    // Lifecycle status.

	EncryptedAccessKey string `gorm:"type:text;not null"` // Ciphertext of the access key ID.
	EncryptedSecretKey string `gorm:"type:text;not null"` // Ciphertext of the secret access key.
	EncryptionKeyID    string `gorm:"type:text;not null"` // Key used to produce both ciphertexts.

	BillingAddress datatypes.JSON `gorm:"type:jsonb"`                       // Optional billing address.
	Quota          datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Quota snapshot.

	CreatedBy string `gorm:"type:text;not null;index"` // Owning actor ID.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Account) TableName() string {
	return "accounts"
}

// BillingAddress is the structured postal record attached to an account.
type BillingAddress struct {
	Country    string `json:"country,omitempty"`
	State      string `json:"state,omitempty"`
	City       string `json:"city,omitempty"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsZero reports whether every field is empty.
func (b BillingAddress) IsZero() bool {
	return b == BillingAddress{}
}
