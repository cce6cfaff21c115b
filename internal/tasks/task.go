// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package tasks tracks web download requests so HTTP clients can poll them.
package tasks

import (
	"context"
	"errors"
	"time"
)

// Status of a web task.
type Status string

const (
	StatusPending          Status = "pending"
	StatusFetchingMetadata Status = "fetching_metadata"
	StatusDownloading      Status = "downloading"
	StatusDone             Status = "done"
	StatusError            Status = "error"
)

// Terminal reports whether no further transitions happen.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// ErrNotFound is returned for unknown or expired task IDs.
var ErrNotFound = errors.New("task not found")

// Task is the pollable record of one web submission.
type Task struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Format    string    `json:"format,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"errorKind,omitempty"`
	Title     string    `json:"title,omitempty"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
	FileName  string    `json:"fileName,omitempty"` // artifact name inside the results dir
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists tasks for at least their TTL.
type Store interface {
	Create(ctx context.Context, t Task) error
	Get(ctx context.Context, id string) (Task, error)
	// Update applies fn to the stored task atomically.
	Update(ctx context.Context, id string, fn func(*Task)) error
	// Ping reports store health.
	Ping(ctx context.Context) error
}
