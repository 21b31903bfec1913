// Package config loads the effective switcher configuration.
//
// Layers, lowest priority first:
//   - built-in defaults
//   - switcher/config.{yaml,yml,json,pkl} in each XDG system config dir, then in XDG_CONFIG_HOME
//   - SWITCHER_* environment variables
//
// Flags are applied by the caller on top of the result. An explicit --config
// file replaces discovery entirely.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/picklr-io/switcher/internal/eval"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
	"gopkg.in/yaml.v3"
)

// FileNames are tried in this order inside every config directory.
var FileNames = []string{"config.yaml", "config.yml", "config.json", "config.pkl"}

// Loader holds the inputs of configuration loading; zero fields use the process environment.
type Loader struct {
	// Dirs overrides the XDG search path, lowest priority first.
	Dirs []string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	Evaluator *eval.Evaluator
}

// Load builds the configuration from explicitPath, or from discovered files
// when explicitPath is empty. It returns the files that were applied.
func Load(ctx context.Context, explicitPath string) (*ir.Config, []string, error) {
	return (&Loader{}).Load(ctx, explicitPath)
}

func (l *Loader) Load(ctx context.Context, explicitPath string) (*ir.Config, []string, error) {
	cfg := ir.DefaultConfig()

	var files []string
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, nil, fmt.Errorf("config file %s: %w", explicitPath, err)
		}
		files = []string{explicitPath}
	} else {
		files = l.discover()
	}

	for _, path := range files {
		logging.Debug("loading config file", "path", path)
		if err := l.loadFile(ctx, cfg, path); err != nil {
			return nil, nil, err
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, files, nil
}

func (l *Loader) searchDirs() []string {
	if l.Dirs != nil {
		return l.Dirs
	}
	// xdg.ConfigDirs is ordered most important first.
	dirs := slices.Clone(xdg.ConfigDirs)
	slices.Reverse(dirs)
	return append(dirs, xdg.ConfigHome)
}

func (l *Loader) discover() []string {
	var found []string
	for _, dir := range l.searchDirs() {
		for _, name := range FileNames {
			path := filepath.Join(dir, "switcher", name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				found = append(found, path)
				break
			}
		}
	}
	return found
}

func (l *Loader) loadFile(ctx context.Context, cfg *ir.Config, path string) error {
	if filepath.Ext(path) == ".pkl" {
		evaluator := l.Evaluator
		if evaluator == nil {
			evaluator = eval.NewEvaluator(nil)
		}
		layer, err := evaluator.LoadConfig(ctx, path)
		if err != nil {
			return err
		}
		Overlay(cfg, layer)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	// JSON is a subset of YAML, so one decoder serves both.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Overlay copies every non-zero field of src onto dst.
func Overlay(dst, src *ir.Config) {
	setString(&dst.Repo.Owner, src.Repo.Owner)
	setString(&dst.Repo.Repo, src.Repo.Repo)
	setString(&dst.Repo.Branch, src.Repo.Branch)
	setString(&dst.Flake, src.Flake)
	setString(&dst.Host, src.Host)
	if len(src.Users) > 0 {
		dst.Users = slices.Clone(src.Users)
	}
	if src.Activators.System != nil {
		dst.Activators.System = src.Activators.System
	}
	if src.Activators.User != nil {
		dst.Activators.User = src.Activators.User
	}
	setString(&dst.Tools.Build, src.Tools.Build)
	setString(&dst.Tools.System, src.Tools.System)
	setString(&dst.Tools.User, src.Tools.User)
	setString(&dst.Credentials.Source, src.Credentials.Source)
	setString(&dst.Credentials.Env, src.Credentials.Env)
	setString(&dst.Credentials.Name, src.Credentials.Name)
	setString(&dst.Credentials.Region, src.Credentials.Region)
	setString(&dst.Credentials.Profile, src.Credentials.Profile)
	setString(&dst.GitHub.Endpoint, src.GitHub.Endpoint)
	setString(&dst.History.Backend, src.History.Backend)
	setString(&dst.History.Path, src.History.Path)
	setString(&dst.History.Bucket, src.History.Bucket)
	setString(&dst.History.Key, src.History.Key)
	setString(&dst.History.Region, src.History.Region)
	setString(&dst.History.Profile, src.History.Profile)
	setString(&dst.History.DynamoDBTable, src.History.DynamoDBTable)
	if src.KeepFailed {
		dst.KeepFailed = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (l *Loader) applyEnv(cfg *ir.Config) error {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"SWITCHER_REPO_OWNER":         &cfg.Repo.Owner,
		"SWITCHER_REPO_REPO":          &cfg.Repo.Repo,
		"SWITCHER_REPO_BRANCH":        &cfg.Repo.Branch,
		"SWITCHER_FLAKE":              &cfg.Flake,
		"SWITCHER_HOST":               &cfg.Host,
		"SWITCHER_CREDENTIALS_SOURCE": &cfg.Credentials.Source,
		"SWITCHER_HISTORY_BACKEND":    &cfg.History.Backend,
		"SWITCHER_GITHUB_ENDPOINT":    &cfg.GitHub.Endpoint,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("SWITCHER_USERS"); ok && v != "" {
		cfg.Users = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.Users = append(cfg.Users, u)
			}
		}
	}

	if v, ok := lookup("SWITCHER_KEEP_FAILED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SWITCHER_KEEP_FAILED: %w", err)
		}
		cfg.KeepFailed = b
	}
	return nil
}

var (
	credentialSources = []string{"gh", "env", "ssm", "secretsmanager"}
	historyBackends   = []string{"local", "s3", "none"}
)

// Validate checks the effective configuration.
func Validate(cfg *ir.Config) error {
	var errs []error

	if _, err := cfg.FlakeRef(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Tools.Build == "" {
		errs = append(errs, errors.New("tools.build is required"))
	}
	if cfg.Activators.SystemEnabled() && cfg.Tools.System == "" {
		errs = append(errs, errors.New("tools.system is required while the system activator is enabled"))
	}
	if cfg.Activators.UserEnabled() && cfg.Tools.User == "" {
		errs = append(errs, errors.New("tools.user is required while the user activator is enabled"))
	}
	if !slices.Contains(credentialSources, cfg.Credentials.Source) {
		errs = append(errs, fmt.Errorf("credentials.source must be one of: %v", credentialSources))
	}
	if !slices.Contains(historyBackends, cfg.History.Backend) {
		errs = append(errs, fmt.Errorf("history.backend must be one of: %v", historyBackends))
	}
	if cfg.History.Backend == "s3" && cfg.History.Bucket == "" {
		errs = append(errs, errors.New("history.bucket is required for the s3 backend"))
	}
	for _, u := range cfg.Users {
		if u == "" || strings.ContainsAny(u, "@#/") {
			errs = append(errs, fmt.Errorf("invalid user name %q", u))
		}
	}

	return errors.Join(errs...)
}
