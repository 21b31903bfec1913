package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

func loadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return cfg, nil
}

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSM reads the token from an SSM Parameter Store parameter, decrypting SecureStrings.
type SSM struct {
	Client SSMAPI
	Name   string
}

func NewSSM(cfg aws.Config, name string) *SSM {
	return &SSM{Client: ssm.NewFromConfig(cfg), Name: name}
}

func (s *SSM) Token(ctx context.Context) (string, error) {
	out, err := s.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.Name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read SSM parameter %s: %w", s.Name, err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", s.Name)
	}
	return nonEmpty(aws.ToString(out.Parameter.Value))
}

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager reads the token from a secret. A JSON secret is expected to
// carry the token under "token"; anything else is used verbatim.
type SecretsManager struct {
	Client   SecretsManagerAPI
	SecretID string
}

func NewSecretsManager(cfg aws.Config, secretID string) *SecretsManager {
	return &SecretsManager{Client: secretsmanager.NewFromConfig(cfg), SecretID: secretID}
}

func (s *SecretsManager) Token(ctx context.Context) (string, error) {
	out, err := s.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", s.SecretID, err)
	}

	secret := strings.TrimSpace(aws.ToString(out.SecretString))
	if strings.HasPrefix(secret, "{") {
		var doc struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(secret), &doc); err != nil {
			return "", fmt.Errorf("failed to decode secret %s: %w", s.SecretID, err)
		}
		return nonEmpty(doc.Token)
	}
	return nonEmpty(secret)
}
