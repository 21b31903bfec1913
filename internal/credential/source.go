// Package credential produces the bearer token used to query a hosting
// provider. Where the token comes from is configurable; every source either
// returns a non-empty token or fails.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/system"
)

// Source yields a bearer token.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// ErrEmptyToken is returned when a source resolves to an empty string.
var ErrEmptyToken = errors.New("credential source returned an empty token")

// New builds the Source selected by cfg.
func New(ctx context.Context, cfg ir.CredentialConfig, runner system.Runner) (Source, error) {
	switch cfg.Source {
	case "gh", "":
		return &GHCLI{Runner: runner}, nil
	case "env":
		name := cfg.Env
		if name == "" {
			name = ir.DefaultTokenEnv
		}
		return &Env{Name: name}, nil
	case "ssm":
		if cfg.Name == "" {
			return nil, errors.New("ssm credential source requires 'credentials.name'")
		}
		awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Profile)
		if err != nil {
			return nil, err
		}
		return NewSSM(awsCfg, cfg.Name), nil
	case "secretsmanager":
		if cfg.Name == "" {
			return nil, errors.New("secretsmanager credential source requires 'credentials.name'")
		}
		awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Profile)
		if err != nil {
			return nil, err
		}
		return NewSecretsManager(awsCfg, cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown credential source: %s", cfg.Source)
	}
}

// RequiredTools lists the programs a credential source needs on PATH.
func RequiredTools(cfg ir.CredentialConfig) []string {
	if cfg.Source == "gh" || cfg.Source == "" {
		return []string{"gh"}
	}
	return nil
}

// GHCLI asks the GitHub CLI for its stored token.
type GHCLI struct {
	Runner system.Runner
}

func (s *GHCLI) Token(ctx context.Context) (string, error) {
	out, err := s.Runner.RunCaptured(ctx, "gh", "auth", "token")
	if err != nil {
		return "", fmt.Errorf("retrieving token from gh: %w", err)
	}
	return nonEmpty(out)
}

// Env reads the token from an environment variable.
type Env struct {
	Name string
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

func (s *Env) Token(context.Context) (string, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(s.Name)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", s.Name)
	}
	return nonEmpty(v)
}

func nonEmpty(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
