package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/account"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
)

const defaultCallTimeout = 15 * time.Second

// STSClient is the subset of the STS API used here.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, input *sts.GetCallerIdentityInput, opts ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AccountClient is the subset of the Account Management API used here.
type AccountClient interface {
	GetContactInformation(ctx context.Context, input *account.GetContactInformationInput, opts ...func(*account.Options)) (*account.GetContactInformationOutput, error)
}

// ServiceQuotasClient is the subset of the Service Quotas API used here.
type ServiceQuotasClient interface {
	GetServiceQuota(ctx context.Context, input *servicequotas.GetServiceQuotaInput, opts ...func(*servicequotas.Options)) (*servicequotas.GetServiceQuotaOutput, error)
}

// BedrockClient is the subset of the Bedrock control-plane API used here.
type BedrockClient interface {
	ListFoundationModels(ctx context.Context, input *bedrock.ListFoundationModelsInput, opts ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
}

// AWS talks to the real AWS APIs with per-call static credentials.
type AWS struct {
	callTimeout time.Duration

	newSTS           func(aws.Config) STSClient
	newAccount       func(aws.Config) AccountClient
	newServiceQuotas func(aws.Config) ServiceQuotasClient
	newBedrock       func(aws.Config) BedrockClient
}

// NewAWS constructs an AWS provider. A non-positive timeout uses the default.
func NewAWS(callTimeout time.Duration) *AWS {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &AWS{
		callTimeout:      callTimeout,
		newSTS:           func(cfg aws.Config) STSClient { return sts.NewFromConfig(cfg) },
		newAccount:       func(cfg aws.Config) AccountClient { return account.NewFromConfig(cfg) },
		newServiceQuotas: func(cfg aws.Config) ServiceQuotasClient { return servicequotas.NewFromConfig(cfg) },
		newBedrock:       func(cfg aws.Config) BedrockClient { return bedrock.NewFromConfig(cfg) },
	}
}

func (p *AWS) loadConfig(ctx context.Context, creds Credentials, region string) (aws.Config, error) {
	if strings.TrimSpace(region) == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
	)
	if err != nil {
		return aws.Config{}, apperr.Wrap(apperr.KindProviderFailure, "load aws config", err)
	}
	return cfg, nil
}

func providerError(op string, err error) error {
	return apperr.Wrap(apperr.KindProviderFailure, fmt.Sprintf("aws %s failed", op), err).WithCode(ErrorCode(err))
}

// CallerIdentity calls STS GetCallerIdentity.
func (p *AWS) CallerIdentity(ctx context.Context, creds Credentials, region string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	cfg, err := p.loadConfig(ctx, creds, region)
	if err != nil {
		return Identity{}, err
	}
	out, err := p.newSTS(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, providerError("sts:GetCallerIdentity", err)
	}
	return Identity{
		AccountID:    aws.ToString(out.Account),
		PrincipalARN: aws.ToString(out.Arn),
		PrincipalID:  aws.ToString(out.UserId),
	}, nil
}

// ContactInformation calls Account GetContactInformation.
func (p *AWS) ContactInformation(ctx context.Context, creds Credentials, region string) (models.BillingAddress, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	cfg, err := p.loadConfig(ctx, creds, region)
	if err != nil {
		return models.BillingAddress{}, err
	}
	out, err := p.newAccount(cfg).GetContactInformation(ctx, &account.GetContactInformationInput{})
	if err != nil {
		return models.BillingAddress{}, providerError("account:GetContactInformation", err)
	}
	if out.ContactInformation == nil {
		return models.BillingAddress{}, nil
	}
	contact := out.ContactInformation
	return models.BillingAddress{
		Country:    aws.ToString(contact.CountryCode),
		State:      aws.ToString(contact.StateOrRegion),
		City:       aws.ToString(contact.City),
		Address:    aws.ToString(contact.AddressLine1),
		PostalCode: aws.ToString(contact.PostalCode),
	}, nil
}

// ServiceQuota calls Service Quotas GetServiceQuota and returns the applied value.
func (p *AWS) ServiceQuota(ctx context.Context, creds Credentials, region, serviceCode, quotaCode string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	cfg, err := p.loadConfig(ctx, creds, region)
	if err != nil {
		return 0, err
	}
	out, err := p.newServiceQuotas(cfg).GetServiceQuota(ctx, &servicequotas.GetServiceQuotaInput{
		ServiceCode: aws.String(serviceCode),
		QuotaCode:   aws.String(quotaCode),
	})
	if err != nil {
		return 0, providerError("servicequotas:GetServiceQuota", err)
	}
	if out.Quota == nil {
		return 0, nil
	}
	return aws.ToFloat64(out.Quota.Value), nil
}

// FoundationModels lists the model IDs offered by a model provider.
func (p *AWS) FoundationModels(ctx context.Context, creds Credentials, region, provider string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	cfg, err := p.loadConfig(ctx, creds, region)
	if err != nil {
		return nil, err
	}
	out, err := p.newBedrock(cfg).ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{
		ByProvider: aws.String(provider),
	})
	if err != nil {
		return nil, providerError("bedrock:ListFoundationModels", err)
	}
	ids := make([]string, 0, len(out.ModelSummaries))
	for _, summary := range out.ModelSummaries {
		if id := aws.ToString(summary.ModelId); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

var _ Provider = (*AWS)(nil)
