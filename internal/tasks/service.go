// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/jobs"
)

// IdentityPrefix namespaces web tasks in the session store.
const IdentityPrefix = "web:"

// Submitter starts jobs; *jobs.Orchestrator implements it.
type Submitter interface {
	Submit(ctx context.Context, identity, rawURL string, opts jobs.SubmitOptions, sink jobs.ResultSink) error
}

// Service creates web tasks and binds them to jobs.
type Service struct {
	Jobs       Submitter
	Store      Store
	ResultsDir string
}

// Submit validates and schedules a download for rawURL. A non-empty tierID
// overrides the automatic tier. Rejections come back as *jobs.Error.
func (s *Service) Submit(ctx context.Context, rawURL, tierID string) (Task, error) {
	now := time.Now()
	task := Task{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var opts jobs.SubmitOptions
	if tierID != "" {
		tier, ok := format.Lookup(tierID)
		if !ok {
			return Task{}, &jobs.Error{Kind: jobs.KindValidation, Message: fmt.Sprintf("Unknown format %q.", tierID)}
		}
		opts.Tier = tier.ID
		task.Format = string(tier.ID)
	}

	if err := s.Store.Create(ctx, task); err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	sink := &Sink{Store: s.Store, ResultsDir: s.ResultsDir, TaskID: task.ID}
	if err := s.Jobs.Submit(ctx, IdentityPrefix+task.ID, rawURL, opts, sink); err != nil {
		var jerr *jobs.Error
		if errors.As(err, &jerr) {
			sink.Failed(ctx, jerr)
		}
		return Task{}, err
	}
	return task, nil
}

// Get returns the task with id.
func (s *Service) Get(ctx context.Context, id string) (Task, error) {
	return s.Store.Get(ctx, id)
}

// ResultPath returns the published artifact of a finished task.
func (s *Service) ResultPath(ctx context.Context, id string) (string, Task, error) {
	t, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", Task{}, err
	}
	if t.Status != StatusDone || t.FileName == "" || strings.ContainsAny(t.FileName, `/\`) {
		return "", t, ErrNotFound
	}
	path := filepath.Join(s.ResultsDir, t.FileName)
	if _, err := os.Stat(path); err != nil {
		return "", t, ErrNotFound
	}
	return path, t, nil
}
