package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/cloud"
	"github.com/router-for-me/CloudAccountsBusiness/internal/kms"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quota"
	"github.com/router-for-me/CloudAccountsBusiness/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// DefaultRegion is used when a create request omits the quota region.
const DefaultRegion = "us-east-1"

const resourceTypeAccount = "account"

// CredentialVerifier resolves the identity behind a credential pair.
type CredentialVerifier interface {
	Verify(ctx context.Context, creds cloud.Credentials, region string) (cloud.Identity, error)
}

// QuotaFetcher builds a quota snapshot from model definitions.
type QuotaFetcher interface {
	Fetch(ctx context.Context, creds cloud.Credentials, region string, defs []models.ModelDefinition) quota.Snapshot
}

// DefinitionSource supplies the configured model definitions.
type DefinitionSource interface {
	Definitions(ctx context.Context) []models.ModelDefinition
}

// AccountRepository persists account records.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Get(ctx context.Context, accountID string) (*models.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Account, error)
	ListAll(ctx context.Context) ([]models.Account, error)
	ListIDsByStatus(ctx context.Context, status string) ([]string, error)
	UpdateQuota(ctx context.Context, accountID string, snapshot datatypes.JSON) error
	UpdateBillingAddress(ctx context.Context, accountID string, address datatypes.JSON) error
	UpdateStatus(ctx context.Context, accountID, status string) error
}

// AuditRepository appends audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

// Dependencies are the collaborators of a Service. All are required except
// Contacts, whose absence leaves billing addresses empty.
type Dependencies struct {
	Verifier    CredentialVerifier
	Gateway     kms.Gateway
	Contacts    cloud.ContactAPI
	Quotas      QuotaFetcher
	Definitions DefinitionSource
	Accounts    AccountRepository
	Audit       AuditRepository
	// IdentityRegion is the region used for verification and contact lookups.
	IdentityRegion string
}

// Service is the account lifecycle service.
type Service struct {
	verifier       CredentialVerifier
	gateway        kms.Gateway
	contacts       cloud.ContactAPI
	quotas         QuotaFetcher
	definitions    DefinitionSource
	accounts       AccountRepository
	audit          AuditRepository
	identityRegion string
	now            func() time.Time
}

// NewService wires a Service from its dependencies.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Verifier == nil:
		return nil, errors.New("account: verifier is required")
	case deps.Gateway == nil:
		return nil, errors.New("account: key gateway is required")
	case deps.Quotas == nil:
		return nil, errors.New("account: quota source is required")
	case deps.Definitions == nil:
		return nil, errors.New("account: definition source is required")
	case deps.Accounts == nil:
		return nil, errors.New("account: account repository is required")
	case deps.Audit == nil:
		return nil, errors.New("account: audit repository is required")
	}
	region := strings.TrimSpace(deps.IdentityRegion)
	if region == "" {
		region = DefaultRegion
	}
	return &Service{
		verifier:       deps.Verifier,
		gateway:        deps.Gateway,
		contacts:       deps.Contacts,
		quotas:         deps.Quotas,
		definitions:    deps.Definitions,
		accounts:       deps.Accounts,
		audit:          deps.Audit,
		identityRegion: region,
		now:            time.Now,
	}, nil
}

// View is the caller-facing account representation. It never carries
// credential material.
type View struct {
	AccountID      string                 `json:"account_id"`
	AccountName    string                 `json:"account_name"`
	AccountEmail   string                 `json:"account_email,omitempty"`
	Region         string                 `json:"region"`
	Status         string                 `json:"status"`
	BillingAddress *models.BillingAddress `json:"billing_address,omitempty"`
	Quota          quota.Snapshot         `json:"bedrock_quota"`
	CreatedAt      int64                  `json:"created_at"`
	UpdatedAt      int64                  `json:"updated_at"`
	CreatedBy      string                 `json:"created_by"`
}

// ExportedCredentials is the plaintext credential pair returned by export.
type ExportedCredentials struct {
	AccountID string `json:"account_id"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// CreateInput is an onboarding request.
type CreateInput struct {
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
	AccountName string `json:"account_name"`
	Region      string `json:"region"`
}

func (in *CreateInput) normalize() error {
	in.AccessKey = strings.TrimSpace(in.AccessKey)
	in.SecretKey = strings.TrimSpace(in.SecretKey)
	in.AccountName = strings.TrimSpace(in.AccountName)
	in.Region = strings.TrimSpace(in.Region)
	if in.Region == "" {
		in.Region = DefaultRegion
	}
	switch {
	case len(in.AccessKey) < 16 || len(in.AccessKey) > 128:
		return apperr.Validation("access_key must be between 16 and 128 characters")
	case len(in.SecretKey) < 40:
		return apperr.Validation("secret_key must be at least 40 characters")
	case in.AccountName == "" || len(in.AccountName) > 255:
		return apperr.Validation("account_name must be between 1 and 255 characters")
	}
	return nil
}

// authorize is the single guard for admin-only operations. Denied attempts
// are recorded in the audit log.
func (s *Service) authorize(ctx context.Context, a actor.Actor, action, accountID string) error {
	errGuard := actor.Require(a, actor.RoleAdmin)
	if errGuard == nil {
		return nil
	}
	log.WithFields(log.Fields{
		"user_id":    a.ID,
		"action":     action,
		"account_id": accountID,
	}).Warn("account: privileged operation denied")
	entry := s.entry(a, action, accountID, map[string]any{"required_role": string(actor.RoleAdmin), "role": string(a.Role)})
	entry.Status = models.AuditStatusDenied
	entry.Severity = models.AuditSeverityWarning
	if errAudit := s.audit.Append(ctx, entry); errAudit != nil {
		log.WithError(errAudit).Error("account: failed to record denied attempt")
	}
	return errGuard
}

func (s *Service) entry(a actor.Actor, action, accountID string, details map[string]any) *models.AuditLog {
	userID := a.ID
	if userID == "" {
		userID = "anonymous"
	}
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceTypeAccount,
		ResourceID:   accountID,
		IPAddress:    a.IPAddress,
		UserAgent:    a.UserAgent,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	return entry
}

// record appends a success entry. Failures are logged, never surfaced.
func (s *Service) record(ctx context.Context, a actor.Actor, action, accountID string, details map[string]any) {
	if errAudit := s.audit.Append(ctx, s.entry(a, action, accountID, details)); errAudit != nil {
		log.WithError(errAudit).WithFields(log.Fields{
			"action":     action,
			"account_id": accountID,
		}).Error("account: failed to write audit entry")
	}
}

// Create onboards an account from a credential pair.
func (s *Service) Create(ctx context.Context, a actor.Actor, in CreateInput) (View, error) {
	if err := s.authorize(ctx, a, models.AuditActionCreateAccount, ""); err != nil {
		return View{}, err
	}
	if err := in.normalize(); err != nil {
		return View{}, err
	}
	log.WithFields(log.Fields{
		"account_name": in.AccountName,
		"region":       in.Region,
		"user_id":      a.ID,
	}).Info("account: creating account")

	creds := cloud.Credentials{AccessKeyID: in.AccessKey, SecretAccessKey: in.SecretKey}
	identity, err := s.verifier.Verify(ctx, creds, s.identityRegion)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"access_key": util.MaskKey(in.AccessKey),
			"user_id":    a.ID,
		}).Warn("account: credential verification failed")
		return View{}, err
	}
	if _, errGet := s.accounts.Get(ctx, identity.AccountID); errGet == nil {
		return View{}, apperr.New(apperr.KindConflict, fmt.Sprintf("account %s already exists", identity.AccountID))
	} else if !errors.Is(errGet, apperr.ErrNotFound) {
		return View{}, errGet
	}

	encAccess, err := s.gateway.Encrypt(ctx, in.AccessKey)
	if err != nil {
		return View{}, err
	}
	encSecret, err := s.gateway.Encrypt(ctx, in.SecretKey)
	if err != nil {
		return View{}, err
	}
	if encAccess.KeyID != encSecret.KeyID {
		return View{}, apperr.New(apperr.KindEncryptionFailure, "encryption key changed while encrypting credentials")
	}

	record := &models.Account{
		AccountID:          identity.AccountID,
		AccountName:        in.AccountName,
		Region:             in.Region,
		Status:             models.AccountStatusActive,
		EncryptedAccessKey: encAccess.Value,
		EncryptedSecretKey: encSecret.Value,
		EncryptionKeyID:    encAccess.KeyID,
		CreatedBy:          a.ID,
	}
	if address := s.lookupBillingAddress(ctx, creds, identity.AccountID); !address.IsZero() {
		if raw, errMarshal := json.Marshal(address); errMarshal == nil {
			record.BillingAddress = datatypes.JSON(raw)
		}
	}

	defs := s.definitions.Definitions(ctx)
	snapshot := s.quotas.Fetch(ctx, creds, in.Region, defs)
	encoded, err := encodeSnapshot(snapshot, defs)
	if err != nil {
		log.WithError(err).WithField("account_id", identity.AccountID).Warn("account: discarding invalid quota snapshot")
		encoded, _ = encodeSnapshot(quota.NewSnapshot(s.now()), nil)
	}
	record.Quota = encoded

	if err = s.accounts.Create(ctx, record); err != nil {
		return View{}, err
	}
	s.record(ctx, a, models.AuditActionCreateAccount, record.AccountID, map[string]any{
		"account_name": in.AccountName,
		"region":       in.Region,
	})

	stored, err := s.accounts.Get(ctx, record.AccountID)
	if err != nil {
		stored = record
	}
	log.WithFields(log.Fields{
		"account_id": record.AccountID,
		"region":     in.Region,
	}).Info("account: account created")
	return toView(stored), nil
}

func (s *Service) lookupBillingAddress(ctx context.Context, creds cloud.Credentials, accountID string) models.BillingAddress {
	if s.contacts == nil {
		return models.BillingAddress{}
	}
	address, err := s.contacts.ContactInformation(ctx, creds, s.identityRegion)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"account_id": accountID,
			"error_code": cloud.ErrorCode(err),
		}).Warn("account: billing address unavailable")
		return models.BillingAddress{}
	}
	return address
}

// List returns every account for admins and the caller's own accounts otherwise.
func (s *Service) List(ctx context.Context, a actor.Actor) ([]View, error) {
	if err := actor.Require(a, actor.RoleUser); err != nil {
		return nil, err
	}
	var (
		rows []models.Account
		err  error
	)
	if a.IsAdmin() {
		rows, err = s.accounts.ListAll(ctx)
	} else {
		rows, err = s.accounts.ListByOwner(ctx, a.ID)
	}
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for i := range rows {
		out = append(out, toView(&rows[i]))
	}
	return out, nil
}

// load fetches an account and applies the ownership check.
func (s *Service) load(ctx context.Context, a actor.Actor, accountID string) (*models.Account, error) {
	if err := actor.Require(a, actor.RoleUser); err != nil {
		return nil, err
	}
	record, err := s.accounts.Get(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return nil, err
	}
	if !a.Owns(record.CreatedBy) {
		return nil, apperr.PermissionDenied("you do not have access to this account")
	}
	return record, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, a actor.Actor, accountID string) (View, error) {
	record, err := s.load(ctx, a, accountID)
	if err != nil {
		return View{}, err
	}
	return toView(record), nil
}

// GetQuota returns the stored quota snapshot.
func (s *Service) GetQuota(ctx context.Context, a actor.Actor, accountID string) (quota.Snapshot, error) {
	record, err := s.load(ctx, a, accountID)
	if err != nil {
		return quota.Snapshot{}, err
	}
	return decodeSnapshot(record), nil
}

// GetBillingAddress returns the stored billing address, which may be empty.
func (s *Service) GetBillingAddress(ctx context.Context, a actor.Actor, accountID string) (models.BillingAddress, error) {
	record, err := s.load(ctx, a, accountID)
	if err != nil {
		return models.BillingAddress{}, err
	}
	if address := decodeBillingAddress(record); address != nil {
		return *address, nil
	}
	return models.BillingAddress{}, nil
}

// ExportCredentials decrypts and returns the stored credential pair. The audit
// entry is written before any plaintext leaves the service.
func (s *Service) ExportCredentials(ctx context.Context, a actor.Actor, accountID string) (ExportedCredentials, error) {
	if err := s.authorize(ctx, a, models.AuditActionExportCredentials, accountID); err != nil {
		return ExportedCredentials{}, err
	}
	log.WithFields(log.Fields{
		"account_id": accountID,
		"user_id":    a.ID,
	}).Warn("account: credentials export requested")

	record, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return ExportedCredentials{}, err
	}
	creds, err := s.decrypt(ctx, record)
	if err != nil {
		return ExportedCredentials{}, err
	}

	entry := s.entry(a, models.AuditActionExportCredentials, accountID, map[string]any{"reason": "admin_export"})
	entry.Severity = models.AuditSeverityWarning
	if errAudit := s.audit.Append(ctx, entry); errAudit != nil {
		log.WithError(errAudit).WithField("account_id", accountID).Error("account: export aborted, audit write failed")
		return ExportedCredentials{}, apperr.Wrap(apperr.KindInternal, "failed to record credential export", errAudit)
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"user_id":    a.ID,
	}).Warn("account: credentials exported")
	return ExportedCredentials{
		AccountID: record.AccountID,
		AccessKey: creds.AccessKeyID,
		SecretKey: creds.SecretAccessKey,
	}, nil
}

// RefreshQuota re-queries quotas in the account's home region and stores the result.
func (s *Service) RefreshQuota(ctx context.Context, a actor.Actor, accountID string) (quota.Snapshot, error) {
	if err := s.authorize(ctx, a, models.AuditActionRefreshQuota, accountID); err != nil {
		return quota.Snapshot{}, err
	}
	record, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return quota.Snapshot{}, err
	}
	region := strings.TrimSpace(record.Region)
	if region == "" {
		region = DefaultRegion
	}
	creds, err := s.decrypt(ctx, record)
	if err != nil {
		return quota.Snapshot{}, err
	}

	defs := s.definitions.Definitions(ctx)
	snapshot := s.quotas.Fetch(ctx, creds, region, defs)
	encoded, err := encodeSnapshot(snapshot, defs)
	if err != nil {
		return quota.Snapshot{}, err
	}
	if err = s.accounts.UpdateQuota(ctx, accountID, encoded); err != nil {
		return quota.Snapshot{}, err
	}
	s.record(ctx, a, models.AuditActionRefreshQuota, accountID, map[string]any{
		"quota":  snapshot,
		"region": region,
	})
	log.WithFields(log.Fields{
		"account_id": accountID,
		"region":     region,
	}).Info("account: quota refreshed")
	return snapshot, nil
}

// UpdateBillingAddress replaces the stored billing address.
func (s *Service) UpdateBillingAddress(ctx context.Context, a actor.Actor, accountID string, address models.BillingAddress) error {
	if err := s.authorize(ctx, a, models.AuditActionUpdateBillingAddress, accountID); err != nil {
		return err
	}
	address = trimAddress(address)
	if address.Country == "" {
		return apperr.Validation("country is required")
	}
	raw, err := json.Marshal(address)
	if err != nil {
		return fmt.Errorf("account: encode billing address: %w", err)
	}
	if err = s.accounts.UpdateBillingAddress(ctx, accountID, datatypes.JSON(raw)); err != nil {
		return err
	}
	s.record(ctx, a, models.AuditActionUpdateBillingAddress, accountID, map[string]any{"billing_address": address})
	return nil
}

// Delete marks the account inactive. Deleting an inactive account succeeds.
func (s *Service) Delete(ctx context.Context, a actor.Actor, accountID string) error {
	if err := s.authorize(ctx, a, models.AuditActionDeleteAccount, accountID); err != nil {
		return err
	}
	record, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if record.Status != models.AccountStatusInactive {
		if err = s.accounts.UpdateStatus(ctx, accountID, models.AccountStatusInactive); err != nil {
			return err
		}
	}
	s.record(ctx, a, models.AuditActionDeleteAccount, accountID, map[string]any{"previous_status": record.Status})
	log.WithFields(log.Fields{
		"account_id": accountID,
		"user_id":    a.ID,
	}).Info("account: account deactivated")
	return nil
}

// ActiveAccountIDs lists accounts eligible for background refresh.
func (s *Service) ActiveAccountIDs(ctx context.Context) ([]string, error) {
	return s.accounts.ListIDsByStatus(ctx, models.AccountStatusActive)
}

func (s *Service) decrypt(ctx context.Context, record *models.Account) (cloud.Credentials, error) {
	accessKey, err := s.gateway.Decrypt(ctx, kms.Ciphertext{Value: record.EncryptedAccessKey, KeyID: record.EncryptionKeyID})
	if err != nil {
		return cloud.Credentials{}, err
	}
	secretKey, err := s.gateway.Decrypt(ctx, kms.Ciphertext{Value: record.EncryptedSecretKey, KeyID: record.EncryptionKeyID})
	if err != nil {
		return cloud.Credentials{}, err
	}
	return cloud.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey}, nil
}

func encodeSnapshot(snapshot quota.Snapshot, defs []models.ModelDefinition) (datatypes.JSON, error) {
	if err := snapshot.Validate(quota.AllowedFields(defs)); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("account: encode quota snapshot: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decodeSnapshot(record *models.Account) quota.Snapshot {
	snapshot, err := quota.ParseSnapshot(record.Quota)
	if err != nil {
		log.WithError(err).WithField("account_id", record.AccountID).Warn("account: stored quota snapshot unreadable")
	}
	return snapshot
}

func decodeBillingAddress(record *models.Account) *models.BillingAddress {
	raw := strings.TrimSpace(string(record.BillingAddress))
	if raw == "" || raw == "null" {
		return nil
	}
	var address models.BillingAddress
	if err := json.Unmarshal(record.BillingAddress, &address); err != nil || address.IsZero() {
		return nil
	}
	return &address
}

func trimAddress(address models.BillingAddress) models.BillingAddress {
	return models.BillingAddress{
		Country:    strings.TrimSpace(address.Country),
		State:      strings.TrimSpace(address.State),
		City:       strings.TrimSpace(address.City),
		Address:    strings.TrimSpace(address.Address),
		PostalCode: strings.TrimSpace(address.PostalCode),
	}
}

func toView(record *models.Account) View {
	return View{
		AccountID:      record.AccountID,
		AccountName:    record.AccountName,
		AccountEmail:   record.AccountEmail,
		Region:         record.Region,
		Status:         record.Status,
		BillingAddress: decodeBillingAddress(record),
		Quota:          decodeSnapshot(record),
		CreatedAt:      record.CreatedAt.Unix(),
		UpdatedAt:      record.UpdatedAt.Unix(),
		CreatedBy:      record.CreatedBy,
	}
}
