// Package zfsexec wraps the `zfs` command line tool the way
// github.com/mistifyio/go-zfs wraps it: every ZFS operation this project
// needs is a spawned child process with a defined stdin/stdout contract,
// never a cgo binding, per the external-process model this spec mandates.
package zfsexec

import (
	"bytes"
	"context"
	"io"
	"os/exec"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/model"
)

// Binary is the name of the zfs executable looked up on PATH.
const Binary = "zfs"

// Runner spawns the zfs binary. The default Exec implementation shells out
// with os/exec; tests substitute a fake that serves canned stdout/stderr, the
// way the teacher's WithLibZFS option substitutes a mock adapter.
type Runner interface {
	// Run spawns `zfs args...` to completion and returns its stdout/stderr.
	Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error)
	// Start spawns `zfs args...` and returns a live stdout pipe the caller
	// reads as a lazy stream, plus a Wait function that blocks until the
	// child exits and returns any remaining stderr.
	Start(ctx context.Context, args ...string) (stdout io.ReadCloser, wait func() (stderr []byte, err error), err error)
}

// Exec is the production Runner, spawning the real zfs binary.
type Exec struct{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Start implements Runner.
func (Exec) Start(ctx context.Context, args ...string) (io.ReadCloser, func() ([]byte, error), error) {
	cmd := exec.CommandContext(ctx, Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, model.NewExternalProcessError(i18n.G("couldn't attach to zfs stdout"), err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, model.NewExternalProcessError(i18n.G("couldn't spawn zfs"), err)
	}
	wait := func() ([]byte, error) {
		err := cmd.Wait()
		return stderr.Bytes(), err
	}
	return stdout, wait, nil
}
