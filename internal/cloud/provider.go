package cloud

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
)

// QuotaServiceCode is the Service Quotas service code for model throughput limits.
const QuotaServiceCode = "bedrock"

// Credentials is a plaintext access key pair. It must never be persisted.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Identity is the principal resolved from a credential pair.
type Identity struct {
	AccountID    string
	PrincipalARN string
	PrincipalID  string
}

// IdentityAPI resolves the caller identity of a credential pair.
type IdentityAPI interface {
	CallerIdentity(ctx context.Context, creds Credentials, region string) (Identity, error)
}

// ContactAPI reads the account's postal contact information.
type ContactAPI interface {
	ContactInformation(ctx context.Context, creds Credentials, region string) (models.BillingAddress, error)
}

// QuotaAPI reads service limits and model availability.
type QuotaAPI interface {
	ServiceQuota(ctx context.Context, creds Credentials, region, serviceCode, quotaCode string) (float64, error)
	FoundationModels(ctx context.Context, creds Credentials, region, provider string) ([]string, error)
}

// Provider is the full set of cloud calls the account services make.
type Provider interface {
	IdentityAPI
	ContactAPI
	QuotaAPI
}

// ErrorCode extracts the provider error code from err, or "Unknown".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.ErrorCode(); code != "" {
			return code
		}
	}
	if code := apperr.CodeOf(err); code != "" {
		return code
	}
	return "Unknown"
}
