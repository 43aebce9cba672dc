package rollforward

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeZfsRunner records every invocation for assertion and lets tests
// script per-subcommand behavior.
type fakeZfsRunner struct {
	allowOutput string
	failOn      map[string]bool
	calls       [][]string
}

func (f *fakeZfsRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string(nil), args...))
	if len(args) > 0 && f.failOn[args[0]] {
		return nil, []byte("boom"), assertErr
	}
	if len(args) > 0 && args[0] == "allow" {
		return []byte(f.allowOutput), nil, nil
	}
	return nil, nil, nil
}

func (f *fakeZfsRunner) Start(ctx context.Context, args ...string) (io.ReadCloser, func() ([]byte, error), error) {
	return io.NopCloser(nil), func() ([]byte, error) { return nil, nil }, nil
}

var assertErr = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestAcquireGuardRequiresPermission(t *testing.T) {
	t.Parallel()
	os.Setenv("USER", "alice")
	defer os.Unsetenv("USER")

	r := &fakeZfsRunner{allowOutput: "user alice create,destroy\n"}
	_, err := AcquireGuard(context.Background(), r, "tank/home", PreRollForward, "")
	assert.Error(t, err)
}

func TestAcquireGuardSucceedsWithMountAndSnapshot(t *testing.T) {
	t.Parallel()
	os.Setenv("USER", "alice")
	defer os.Unsetenv("USER")

	r := &fakeZfsRunner{allowOutput: "user alice mount,snapshot\n"}
	oldNow := guardNow
	guardNow = func() time.Time { return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC) }
	defer func() { guardNow = oldNow }()

	guard, err := AcquireGuard(context.Background(), r, "tank/home", PreRollForward, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(guard.SnapshotName, "httmSnapGuard-20240102-150405-pre-"))
	require.Len(t, r.calls, 2)
	require.Len(t, r.calls[1], 2)
	assert.Equal(t, "snapshot", r.calls[1][0])
	assert.Equal(t, "tank/home@"+guard.SnapshotName, r.calls[1][1])
}

func TestGuardRollbackInvokesZfsRollback(t *testing.T) {
	t.Parallel()

	r := &fakeZfsRunner{}
	guard := &Guard{Dataset: "tank/home", SnapshotName: "httmSnapGuard-x-pre", runner: r}
	require.NoError(t, guard.Rollback(context.Background()))
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"rollback", "-r", "tank/home@httmSnapGuard-x-pre"}, r.calls[0])
}
