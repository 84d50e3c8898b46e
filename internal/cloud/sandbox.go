package cloud

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/aws/smithy-go"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
)

// sandboxQuotas are the fixed values reported for well-known quota codes.
var sandboxQuotas = map[string]float64{
	"L-27C57EE8": 400000,
	"L-4B26E44A": 200000,
	"L-3ABF6ACC": 200000,
	"L-3DCCFAA4": 100000,
	"L-4C59C1F4": 50000,
}

var sandboxAddresses = []models.BillingAddress{
	{Country: "US", State: "California", City: "San Francisco", Address: "123 Market St", PostalCode: "94102"},
	{Country: "JP", State: "Tokyo", City: "Tokyo", Address: "Shibuya", PostalCode: "150-0002"},
	{Country: "DE", State: "Berlin", City: "Berlin", Address: "Unter den Linden 1", PostalCode: "10117"},
}

var sandboxModels = []string{
	"anthropic.claude-sonnet-4-5-20250929-v1:0",
	"anthropic.claude-opus-4-5-20251101-v1:0",
	"anthropic.claude-opus-4-1-20250805-v1:0",
	"anthropic.claude-3-haiku-20240307-v1:0",
}

// Sandbox is a deterministic offline Provider. Account IDs are derived from the
// access key so repeated onboarding of the same key resolves to the same account.
type Sandbox struct {
	mu            sync.RWMutex
	failQuotas    map[string]bool
	failContact   bool
	failModelList bool
}

// NewSandbox constructs a sandbox provider.
func NewSandbox() *Sandbox {
	return &Sandbox{failQuotas: map[string]bool{}}
}

// FailQuotaCode makes lookups of code fail.
func (s *Sandbox) FailQuotaCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failQuotas[code] = true
}

// FailContactInformation makes contact lookups fail.
func (s *Sandbox) FailContactInformation(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failContact = fail
}

// FailModelListing makes model listing fail.
func (s *Sandbox) FailModelListing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failModelList = fail
}

func sandboxError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

func sandboxHash(value string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	return h.Sum64()
}

// CallerIdentity accepts AKIA/ASIA keys and rejects everything else.
func (s *Sandbox) CallerIdentity(ctx context.Context, creds Credentials, region string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	key := strings.TrimSpace(creds.AccessKeyID)
	if !strings.HasPrefix(key, "AKIA") && !strings.HasPrefix(key, "ASIA") {
		return Identity{}, sandboxError("InvalidClientTokenId", "The security token included in the request is invalid.")
	}
	if strings.Contains(strings.ToUpper(key), "REVOKED") {
		return Identity{}, sandboxError("ExpiredToken", "The security token included in the request is expired.")
	}
	accountID := fmt.Sprintf("%012d", sandboxHash(key)%1_000_000_000_000)
	return Identity{
		AccountID:    accountID,
		PrincipalARN: fmt.Sprintf("arn:aws:iam::%s:user/sandbox", accountID),
		PrincipalID:  "AIDA" + strings.ToUpper(fmt.Sprintf("%016x", sandboxHash(creds.SecretAccessKey))),
	}, nil
}

// ContactInformation picks a fixed address from the access key.
func (s *Sandbox) ContactInformation(ctx context.Context, creds Credentials, region string) (models.BillingAddress, error) {
	s.mu.RLock()
	fail := s.failContact
	s.mu.RUnlock()
	if fail {
		return models.BillingAddress{}, sandboxError("AccessDeniedException", "not authorized to perform account:GetContactInformation")
	}
	return sandboxAddresses[sandboxHash(creds.AccessKeyID)%uint64(len(sandboxAddresses))], nil
}

// ServiceQuota returns a fixed value for known codes and a derived value otherwise.
func (s *Sandbox) ServiceQuota(ctx context.Context, creds Credentials, region, serviceCode, quotaCode string) (float64, error) {
	s.mu.RLock()
	fail := s.failQuotas[quotaCode]
	s.mu.RUnlock()
	if fail {
		return 0, sandboxError("NoSuchResourceException", "quota "+quotaCode+" not found")
	}
	if value, ok := sandboxQuotas[quotaCode]; ok {
		return value, nil
	}
	return float64(10000 * (1 + sandboxHash(quotaCode)%50)), nil
}

// FoundationModels returns a fixed model list.
func (s *Sandbox) FoundationModels(ctx context.Context, creds Credentials, region, provider string) ([]string, error) {
	s.mu.RLock()
	fail := s.failModelList
	s.mu.RUnlock()
	if fail {
		return nil, sandboxError("AccessDeniedException", "not authorized to perform bedrock:ListFoundationModels")
	}
	if !strings.EqualFold(provider, "Anthropic") {
		return nil, nil
	}
	return append([]string(nil), sandboxModels...), nil
}

var _ Provider = (*Sandbox)(nil)
