// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package services

import (
	"context"
	"errors"
)

// ContextRunner is implemented by the hub, the audit writer, the retention
// job and the event consumer.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService names a ContextRunner for suture's logs.
type RunnerService struct {
	runner ContextRunner
	name   string
}

func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve delegates to the runner. A runner that returns nil before its
// context ends is reported as an error so suture restarts it.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.RunWithContext(ctx)
	if err == nil && ctx.Err() == nil {
		return errors.New(s.name + " stopped unexpectedly")
	}
	return err
}

func (s *RunnerService) String() string { return s.name }
