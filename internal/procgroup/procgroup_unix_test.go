// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build unix

package procgroup

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// running reports whether pid exists and is not a zombie. Orphans are
// reparented to PID 1, which in minimal containers may never reap them.
func running(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return !errors.Is(err, os.ErrNotExist) || !procfs()
	}
	// The state field follows the parenthesised command name.
	if i := bytes.LastIndexByte(stat, ')'); i >= 0 && i+2 < len(stat) {
		return stat[i+2] != 'Z'
	}
	return true
}

func procfs() bool {
	_, err := os.Stat("/proc/self/stat")
	return err == nil
}

func TestKillReachesWholeGroup(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 10 & echo $!; wait")
	Set(cmd)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	childPID, err := strconv.Atoi(strings.TrimSpace(line))
	require.NoError(t, err)

	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid, "process should be group leader")
	childPGID, err := syscall.Getpgid(childPID)
	require.NoError(t, err)
	require.Equal(t, pgid, childPGID, "background child should share the group")

	require.NoError(t, Kill(cmd, syscall.SIGKILL))

	err = cmd.Wait()
	require.Error(t, err)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			assert.True(t, status.Signaled())
		}
	}

	// The background sleep was in the same group and must be gone too.
	ok := assert.Eventually(t, func() bool { return !running(childPID) }, 2*time.Second, 10*time.Millisecond)
	if !ok {
		_ = syscall.Kill(childPID, syscall.SIGKILL)
	}
}

func TestTerminateEscalatesToKill(t *testing.T) {
	// The shell ignores SIGTERM so only SIGKILL ends it.
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 10")
	Set(cmd)
	require.NoError(t, cmd.Start())
	time.Sleep(100 * time.Millisecond)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	start := time.Now()
	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTerminateNilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Second))
}
