package kms

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/smithy-go"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	log "github.com/sirupsen/logrus"
)

const defaultCallTimeout = 15 * time.Second

// Client is the subset of the KMS API used here.
type Client interface {
	Encrypt(ctx context.Context, input *awskms.EncryptInput, opts ...func(*awskms.Options)) (*awskms.EncryptOutput, error)
	Decrypt(ctx context.Context, input *awskms.DecryptInput, opts ...func(*awskms.Options)) (*awskms.DecryptOutput, error)
}

// AWSGateway encrypts with an AWS KMS key.
type AWSGateway struct {
	client      Client
	keyID       string
	callTimeout time.Duration
}

// NewAWSGateway constructs a gateway from a loaded AWS config.
func NewAWSGateway(cfg aws.Config, keyID string, callTimeout time.Duration) (*AWSGateway, error) {
	return NewAWSGatewayWithClient(awskms.NewFromConfig(cfg), keyID, callTimeout)
}

// NewAWSGatewayWithClient constructs a gateway around an existing client.
func NewAWSGatewayWithClient(client Client, keyID string, callTimeout time.Duration) (*AWSGateway, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, apperr.New(apperr.KindEncryptionFailure, "kms key id is required")
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &AWSGateway{client: client, keyID: keyID, callTimeout: callTimeout}, nil
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "Unknown"
}

// Encrypt encrypts plaintext with the configured key.
func (g *AWSGateway) Encrypt(ctx context.Context, plaintext string) (Ciphertext, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	out, err := g.client.Encrypt(ctx, &awskms.EncryptInput{
		KeyId:     aws.String(g.keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		log.WithError(err).WithField("error_code", errorCode(err)).Error("kms encrypt failed")
		return Ciphertext{}, apperr.Wrap(apperr.KindEncryptionFailure, "failed to encrypt data", err).WithCode(errorCode(err))
	}
	keyID := aws.ToString(out.KeyId)
	if keyID == "" {
		keyID = g.keyID
	}
	return Ciphertext{
		Value: base64.StdEncoding.EncodeToString(out.CiphertextBlob),
		KeyID: keyID,
	}, nil
}

// Decrypt decrypts a ciphertext produced by Encrypt. The stored key id is passed
// through so records encrypted under a rotated key remain readable.
func (g *AWSGateway) Decrypt(ctx context.Context, ciphertext Ciphertext) (string, error) {
	blob, err := decodeCiphertext(ciphertext.Value)
	if err != nil {
		return "", err
	}
	keyID := strings.TrimSpace(ciphertext.KeyID)
	if keyID == "" {
		keyID = g.keyID
	}

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	out, err := g.client.Decrypt(ctx, &awskms.DecryptInput{
		CiphertextBlob: blob,
		KeyId:          aws.String(keyID),
	})
	if err != nil {
		log.WithError(err).WithField("error_code", errorCode(err)).Error("kms decrypt failed")
		return "", apperr.Wrap(apperr.KindEncryptionFailure, "failed to decrypt data", err).WithCode(errorCode(err))
	}
	return string(out.Plaintext), nil
}

var _ Gateway = (*AWSGateway)(nil)
