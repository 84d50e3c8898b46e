package cloud

import (
	"context"
	"strings"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	log "github.com/sirupsen/logrus"
)

// Verifier validates externally supplied credentials against the identity API.
type Verifier struct {
	api IdentityAPI
}

// NewVerifier constructs a Verifier.
func NewVerifier(api IdentityAPI) *Verifier {
	return &Verifier{api: api}
}

// Verify resolves the account behind a credential pair. Any failure, transient or
// not, is reported as invalid credentials carrying the provider error code.
func (v *Verifier) Verify(ctx context.Context, creds Credentials, region string) (Identity, error) {
	if strings.TrimSpace(creds.AccessKeyID) == "" || strings.TrimSpace(creds.SecretAccessKey) == "" {
		return Identity{}, apperr.New(apperr.KindInvalidCredentials, "access key and secret key are required").WithCode("MissingCredentials")
	}

	identity, err := v.api.CallerIdentity(ctx, creds, region)
	if err != nil {
		code := ErrorCode(err)
		log.WithError(err).WithField("error_code", code).Warn("credential verification failed")
		return Identity{}, apperr.Wrap(apperr.KindInvalidCredentials, "invalid AWS credentials", err).WithCode(code)
	}
	if identity.AccountID == "" {
		return Identity{}, apperr.New(apperr.KindInvalidCredentials, "provider returned no account id").WithCode("EmptyAccount")
	}

	log.WithFields(log.Fields{
		"account_id": identity.AccountID,
		"arn":        identity.PrincipalARN,
	}).Info("credentials verified")
	return identity, nil
}
