package ir

import (
	"time"

	"github.com/picklr-io/switcher/internal/flake"
)

// HistoryVersion is the current on-disk history format.
const HistoryVersion = 1

// History is the persisted list of deployments, oldest first.
type History struct {
	Version     int           `yaml:"version" json:"version"`
	Deployments []*Deployment `yaml:"deployments" json:"deployments"`
}

// Deployment records one run that reached the execute phase.
type Deployment struct {
	ID         string        `yaml:"id" json:"id"`
	Command    string        `yaml:"command" json:"command"`
	StartedAt  time.Time     `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at" json:"finished_at"`
	Host       string        `yaml:"host" json:"host"`
	User       string        `yaml:"user" json:"user"`
	Flake      *flake.Ref    `yaml:"flake" json:"flake"`
	Commit     string        `yaml:"commit" json:"commit"`
	Buildables []string      `yaml:"buildables" json:"buildables"`
	Steps      []*StepResult `yaml:"steps" json:"steps"`
	Status     string        `yaml:"status" json:"status"` // "succeeded" or "failed"
	Error      string        `yaml:"error,omitempty" json:"error,omitempty"`
}

const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusRetained  = "retained"

	DeploymentSucceeded = "succeeded"
	DeploymentFailed    = "failed"
)

// StepResult is the outcome of one execute-phase step.
type StepResult struct {
	Name     StepName      `yaml:"name" json:"name"`
	Status   string        `yaml:"status" json:"status"`
	Duration time.Duration `yaml:"duration" json:"duration"`
	Error    string        `yaml:"error,omitempty" json:"error,omitempty"`
}
