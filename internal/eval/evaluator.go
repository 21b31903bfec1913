// Package eval evaluates Pkl configuration modules into the switcher config.
package eval

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/apple/pkl-go/pkl"
	"github.com/picklr-io/switcher/internal/ir"
)

// Evaluator handles Pkl evaluation into IR types.
type Evaluator struct {
	// Properties are exposed to modules as read("prop:<name>").
	Properties map[string]string
}

func NewEvaluator(properties map[string]string) *Evaluator {
	return &Evaluator{Properties: properties}
}

// LoadConfig evaluates a Pkl config module. Modules inside a Pkl project are
// evaluated with that project's dependencies.
func (e *Evaluator) LoadConfig(ctx context.Context, path string) (*ir.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}

	opts := []func(*pkl.EvaluatorOptions){pkl.PreconfiguredOptions}
	if len(e.Properties) > 0 {
		opts = append(opts, func(o *pkl.EvaluatorOptions) {
			if o.Properties == nil {
				o.Properties = make(map[string]string)
			}
			for k, v := range e.Properties {
				o.Properties[k] = v
			}
		})
	}

	var evaluator pkl.Evaluator
	if dir, ok := projectDir(abs); ok {
		u := &url.URL{Scheme: "file", Path: dir + "/"}
		evaluator, err = pkl.NewProjectEvaluator(ctx, u, opts...)
	} else {
		evaluator, err = pkl.NewEvaluator(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Pkl evaluator: %w", err)
	}
	defer evaluator.Close()

	var cfg ir.Config
	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(abs), &cfg); err != nil {
		return nil, fmt.Errorf("failed to evaluate config %s: %w", path, err)
	}
	return &cfg, nil
}

// projectDir reports the directory holding a PklProject next to the module.
func projectDir(module string) (string, bool) {
	dir := filepath.Dir(module)
	if fileExists(filepath.Join(dir, "PklProject")) {
		return dir, true
	}
	return "", false
}
