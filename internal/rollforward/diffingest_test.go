package rollforward

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/httm-go/httm/internal/model"
)

// fakeDiffRunner serves canned stdout/stderr for Start, standing in for a
// real `zfs diff` invocation.
type fakeDiffRunner struct {
	stdout string
	stderr string
}

func (f *fakeDiffRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	return []byte(f.stdout), []byte(f.stderr), nil
}

func (f *fakeDiffRunner) Start(ctx context.Context, args ...string) (io.ReadCloser, func() ([]byte, error), error) {
	rc := io.NopCloser(strings.NewReader(f.stdout))
	wait := func() ([]byte, error) { return []byte(f.stderr), nil }
	return rc, wait, nil
}

func contextTODO() context.Context { return context.Background() }

func TestParseDiffLine(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		line   string
		want   model.DiffEvent
		wantOK bool
	}{
		"removed":                  {line: "1000000000.123\t-\t/tank/home/gone.txt", want: model.DiffEvent{Path: "/tank/home/gone.txt", Kind: model.Removed, Time: model.DiffTime{Secs: 1000000000, Nanos: 123}}, wantOK: true},
		"created":                  {line: "1000000001.0\t+\t/tank/home/new.txt", want: model.DiffEvent{Path: "/tank/home/new.txt", Kind: model.Created, Time: model.DiffTime{Secs: 1000000001}}, wantOK: true},
		"modified":                 {line: "1000000002.5\tM\t/tank/home/a.txt", want: model.DiffEvent{Path: "/tank/home/a.txt", Kind: model.Modified, Time: model.DiffTime{Secs: 1000000002, Nanos: 5}}, wantOK: true},
		"renamed":                  {line: "1000000003.7\tR\t/tank/home/a\t/tank/home/b", want: model.DiffEvent{Path: "/tank/home/a", Kind: model.Renamed, Time: model.DiffTime{Secs: 1000000003, Nanos: 7}, NewPath: "/tank/home/b"}, wantOK: true},
		"renamed missing new path": {line: "1000000003.7\tR\t/tank/home/a", wantOK: false},
		"unknown kind":             {line: "1000000003.7\tX\t/tank/home/a", wantOK: false},
		"bad time":                 {line: "notatime\tM\t/tank/home/a", wantOK: false},
		"too few fields":           {line: "1000000003.7\tM", wantOK: false},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := parseDiffLine(tc.line)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestIngestNoOutputNoStderrIsNoChanges(t *testing.T) {
	t.Parallel()

	r := &fakeDiffRunner{stdout: "", stderr: ""}
	result, err := Ingest(contextTODO(), r, "tank/home@s1")
	assert.NoError(t, err)
	assert.Empty(t, result.Events)
}

func TestIngestNoOutputWithStderrIsFatal(t *testing.T) {
	t.Parallel()

	r := &fakeDiffRunner{stdout: "", stderr: "cannot hold pool"}
	_, err := Ingest(contextTODO(), r, "tank/home@s1")
	assert.Error(t, err)
}

func TestIngestCollectsParseErrorsButKeepsGoodEvents(t *testing.T) {
	t.Parallel()

	r := &fakeDiffRunner{stdout: "1000.0\tM\t/tank/a\nnotaline\n1001.0\t+\t/tank/b\n"}
	result, err := Ingest(contextTODO(), r, "tank/home@s1")
	assert.NoError(t, err)
	assert.Len(t, result.Events, 2)
	assert.NotNil(t, result.ParseError)
	assert.Len(t, result.ParseError.Lines, 1)
}
