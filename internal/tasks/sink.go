// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/ytaudio/internal/jobs"
	"github.com/ManuGH/ytaudio/internal/log"
)

// Sink records one task's progress and publishes its artifact into the
// results directory.
type Sink struct {
	Store      Store
	ResultsDir string
	TaskID     string
}

var _ jobs.ProgressReporter = (*Sink)(nil)

// Progress moves the task to the stage's status.
func (s *Sink) Progress(ctx context.Context, stage jobs.Stage) {
	status := StatusFetchingMetadata
	if stage == jobs.StageDownloading {
		status = StatusDownloading
	}
	s.update(ctx, func(t *Task) {
		if !t.Status.Terminal() {
			t.Status = status
		}
	})
}

// Delivered copies the artifact into ResultsDir/<taskID><ext> and marks the
// task done. The scratch file stays owned by the orchestrator.
func (s *Sink) Delivered(ctx context.Context, res jobs.Result) error {
	name := s.TaskID + filepath.Ext(res.Path)
	if err := publish(res.Path, filepath.Join(s.ResultsDir, name)); err != nil {
		s.update(ctx, func(t *Task) {
			t.Status = StatusError
			t.ErrorKind = string(jobs.KindInternal)
			t.Error = "Could not store the result. Try again later."
		})
		return err
	}
	s.update(ctx, func(t *Task) {
		t.Status = StatusDone
		t.Title = res.Title
		t.Format = string(res.Tier.ID)
		t.SizeBytes = res.SizeBytes
		t.FileName = name
	})
	return nil
}

// Failed marks the task as errored with the user-facing message.
func (s *Sink) Failed(ctx context.Context, jerr *jobs.Error) {
	s.update(ctx, func(t *Task) {
		t.Status = StatusError
		t.ErrorKind = string(jerr.Kind)
		t.Error = jerr.Message
	})
}

func (s *Sink) update(ctx context.Context, fn func(*Task)) {
	// Store writes outlive a canceled job so the final status is recorded.
	ctx = context.WithoutCancel(ctx)
	if err := s.Store.Update(ctx, s.TaskID, fn); err != nil {
		logger := log.WithContext(ctx, log.WithComponent("tasks"))
		logger.Warn().Err(err).
			Str(log.FieldTaskID, s.TaskID).Msg("task update failed")
	}
}

func publish(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = in.Close() }()

	pending, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending result: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, in); err != nil {
		return fmt.Errorf("copy artifact: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}
