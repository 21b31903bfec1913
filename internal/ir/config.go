package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/picklr-io/switcher/internal/flake"
)

// Config is the effective switcher configuration after all layers are applied.
type Config struct {
	Repo        RepoConfig       `yaml:"repo" json:"repo" pkl:"repo"`
	Flake       string           `yaml:"flake,omitempty" json:"flake,omitempty" pkl:"flake"`
	Host        string           `yaml:"host,omitempty" json:"host,omitempty" pkl:"host"`
	Users       []string         `yaml:"users,omitempty" json:"users,omitempty" pkl:"users"`
	Activators  Activators       `yaml:"activators" json:"activators" pkl:"activators"`
	Tools       Tools            `yaml:"tools" json:"tools" pkl:"tools"`
	Credentials CredentialConfig `yaml:"credentials" json:"credentials" pkl:"credentials"`
	GitHub      GitHubConfig     `yaml:"github" json:"github" pkl:"github"`
	History     HistoryConfig    `yaml:"history" json:"history" pkl:"history"`
	KeepFailed  bool             `yaml:"keep_failed,omitempty" json:"keep_failed,omitempty" pkl:"keepFailed"`
}

type RepoConfig struct {
	Owner  string `yaml:"owner" json:"owner" pkl:"owner"`
	Repo   string `yaml:"repo" json:"repo" pkl:"repo"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty" pkl:"branch"`
}

// Activators switch the system and user halves of a run on or off. Unset means enabled.
type Activators struct {
	System *bool `yaml:"system,omitempty" json:"system,omitempty" pkl:"system"`
	User   *bool `yaml:"user,omitempty" json:"user,omitempty" pkl:"user"`
}

func (a Activators) SystemEnabled() bool { return a.System == nil || *a.System }

func (a Activators) UserEnabled() bool { return a.User == nil || *a.User }

// Tools names the external programs driven during a run.
type Tools struct {
	Build  string `yaml:"build" json:"build" pkl:"build"`
	System string `yaml:"system" json:"system" pkl:"system"`
	User   string `yaml:"user" json:"user" pkl:"user"`
}

// CredentialConfig selects where the hosting-provider token comes from.
type CredentialConfig struct {
	Source  string `yaml:"source" json:"source" pkl:"source"` // "gh", "env", "ssm", "secretsmanager"
	Env     string `yaml:"env,omitempty" json:"env,omitempty" pkl:"env"`
	Name    string `yaml:"name,omitempty" json:"name,omitempty" pkl:"name"`
	Region  string `yaml:"region,omitempty" json:"region,omitempty" pkl:"region"`
	Profile string `yaml:"profile,omitempty" json:"profile,omitempty" pkl:"profile"`
}

type GitHubConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint" pkl:"endpoint"`
}

// HistoryConfig selects the deployment history backend.
type HistoryConfig struct {
	Backend       string `yaml:"backend" json:"backend" pkl:"backend"` // "local", "s3", "none"
	Path          string `yaml:"path,omitempty" json:"path,omitempty" pkl:"path"`
	Bucket        string `yaml:"bucket,omitempty" json:"bucket,omitempty" pkl:"bucket"`
	Key           string `yaml:"key,omitempty" json:"key,omitempty" pkl:"key"`
	Region        string `yaml:"region,omitempty" json:"region,omitempty" pkl:"region"`
	Profile       string `yaml:"profile,omitempty" json:"profile,omitempty" pkl:"profile"`
	DynamoDBTable string `yaml:"dynamodb_table,omitempty" json:"dynamodb_table,omitempty" pkl:"dynamodbTable"`
}

const (
	DefaultBuildTool        = "nom"
	DefaultSystemTool       = "nixos-rebuild"
	DefaultUserTool         = "home-manager"
	DefaultGitHubEndpoint   = "https://api.github.com/graphql"
	DefaultCredentialSource = "gh"
	DefaultTokenEnv         = "GITHUB_TOKEN"
	DefaultRepo             = "nixos-config"
)

// DefaultConfig returns the base layer every other layer overlays.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{Repo: DefaultRepo},
		Tools: Tools{
			Build:  DefaultBuildTool,
			System: DefaultSystemTool,
			User:   DefaultUserTool,
		},
		Credentials: CredentialConfig{
			Source: DefaultCredentialSource,
			Env:    DefaultTokenEnv,
		},
		GitHub:  GitHubConfig{Endpoint: DefaultGitHubEndpoint},
		History: HistoryConfig{Backend: "local"},
	}
}

// FlakeRef returns the unpinned flake reference to deploy. An explicit Flake
// wins over Repo.
func (c *Config) FlakeRef() (*flake.Ref, error) {
	if c.Flake != "" {
		ref, err := flake.Parse(c.Flake)
		if err != nil {
			return nil, err
		}
		if _, ok := ref.Fragment(); ok {
			return nil, fmt.Errorf("'--flake' is not allowed to contain a fragment: %s", c.Flake)
		}
		return ref, nil
	}

	if c.Repo.Owner == "" || c.Repo.Repo == "" {
		return nil, errors.New("no flake configured: set 'flake' or both 'repo.owner' and 'repo.repo'")
	}

	parts := []string{c.Repo.Owner, c.Repo.Repo}
	if branch := strings.Trim(c.Repo.Branch, "/"); branch != "" {
		parts = append(parts, branch)
	}
	return flake.Parse("github:" + strings.Join(parts, "/"))
}
