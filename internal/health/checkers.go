// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// BinaryChecker verifies an executable resolves on PATH or by path.
type BinaryChecker struct {
	name string
	path func() string
}

// NewBinaryChecker reads the path on every check so reloads are honored.
func NewBinaryChecker(name string, path func() string) *BinaryChecker {
	return &BinaryChecker{name: name, path: path}
}

func (c *BinaryChecker) Name() string { return c.name }

func (c *BinaryChecker) Check(context.Context) CheckResult {
	p := c.path()
	resolved, err := exec.LookPath(p)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: p}
	}
	return CheckResult{Status: StatusHealthy, Message: resolved}
}

// WritableDirChecker verifies a directory exists (creating it) and accepts writes.
type WritableDirChecker struct {
	name string
	dir  func() string
}

// NewWritableDirChecker creates a checker for dir.
func NewWritableDirChecker(name string, dir func() string) *WritableDirChecker {
	return &WritableDirChecker{name: name, dir: dir}
}

func (c *WritableDirChecker) Name() string { return c.name }

func (c *WritableDirChecker) Check(context.Context) CheckResult {
	dir := c.dir()
	if err := EnsureWritableDir(dir); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: dir}
	}
	return CheckResult{Status: StatusHealthy, Message: dir}
}

// EnsureWritableDir creates dir if needed and probes it with a temp file.
func EnsureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}

// PingChecker wraps a ping function, e.g. a task store.
type PingChecker struct {
	name string
	ping func(context.Context) error
}

// NewPingChecker creates a checker around ping.
func NewPingChecker(name string, ping func(context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
