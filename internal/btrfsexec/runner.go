// Package btrfsexec wraps the `btrfs` command line tool for subvolume
// discovery, following the same spawned-child-process contract as
// internal/zfsexec.
package btrfsexec

import (
	"bytes"
	"context"
	"os/exec"
)

// Binary is the name of the btrfs executable looked up on PATH.
const Binary = "btrfs"

// Runner spawns the btrfs binary.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error)
}

// Exec is the production Runner, spawning the real btrfs binary.
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
