package rollforward

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/log"
	"github.com/httm-go/httm/internal/model"
	"github.com/httm-go/httm/internal/zfsexec"
)

// IngestResult is the Diff Ingestor's output: the parsed events plus any
// per-line parse errors collected across the whole stream.
type IngestResult struct {
	Events     []model.DiffEvent
	ParseError *model.DiffParseError
}

// Ingest implements the Diff Ingestor contract: ingest(dataset@snap) →
// [DiffEvent]. It spawns `zfs diff -H -t -h`, parses each tab-separated
// line as "time\tkind\tpath[\tnew_path]", and aggregates malformed lines
// rather than failing on the first one. An empty stream with non-empty
// stderr is a fatal ExternalProcessError; an empty stream with empty
// stderr means no changes, unless the process exited with a failure.
func Ingest(ctx context.Context, r zfsexec.Runner, datasetAtSnap string) (IngestResult, error) {
	stdout, wait, err := zfsexec.DiffStream(ctx, r, datasetAtSnap)
	if err != nil {
		return IngestResult{}, err
	}
	defer stdout.Close()

	var events []model.DiffEvent
	var badLines []string

	scanner := bufio.NewScanner(stdout)
	// zfs diff lines can be long when paths are deep; grow the buffer
	// rather than truncating.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		event, ok := parseDiffLine(line)
		if !ok {
			badLines = append(badLines, line)
			continue
		}
		events = append(events, event)
	}
	scanErr := scanner.Err()

	stderr, waitErr := wait()

	if scanErr != nil {
		return IngestResult{}, model.NewExternalProcessError(i18n.G("zfs diff stream read failed"), scanErr)
	}

	// Open question resolved: stdout-empty + stderr-non-empty is treated
	// as fatal; stdout-empty + stderr-empty is "no changes"; a non-empty
	// stdout with trailing stderr noise or a failed exit is tolerated (the
	// stream already produced usable events) and is logged as a warning
	// carrying stderr and waitErr.
	if len(events) == 0 && len(badLines) == 0 {
		if len(stderr) > 0 {
			return IngestResult{}, model.NewExternalProcessError(i18n.G("zfs diff produced no output")+": "+string(stderr), waitErr)
		}
		if waitErr != nil {
			return IngestResult{}, model.NewExternalProcessError(i18n.G("zfs diff failed"), waitErr)
		}
		return IngestResult{}, nil
	}

	if len(stderr) > 0 || waitErr != nil {
		log.Warningf(ctx, i18n.G("zfs diff reported problems alongside its output: %s: %v"), strings.TrimSpace(string(stderr)), waitErr)
	}

	result := IngestResult{Events: events}
	if len(badLines) > 0 {
		result.ParseError = &model.DiffParseError{Lines: badLines}
	}
	return result, nil
}

// parseDiffLine parses one "time\tkind\tpath[\tnew_path]" line.
func parseDiffLine(line string) (model.DiffEvent, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return model.DiffEvent{}, false
	}

	diffTime, ok := parseDiffTime(fields[0])
	if !ok {
		return model.DiffEvent{}, false
	}

	kind, ok := parseDiffKind(fields[1])
	if !ok {
		return model.DiffEvent{}, false
	}

	event := model.DiffEvent{Path: fields[2], Kind: kind, Time: diffTime}
	if kind == model.Renamed {
		if len(fields) < 4 {
			return model.DiffEvent{}, false
		}
		event.NewPath = fields[3]
	}
	return event, true
}

// parseDiffTime parses the "secs.nanos" timestamp `zfs diff -t` emits.
func parseDiffTime(field string) (model.DiffTime, bool) {
	parts := strings.SplitN(field, ".", 2)
	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return model.DiffTime{}, false
	}
	var nanos int64
	if len(parts) == 2 {
		nanos, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return model.DiffTime{}, false
		}
	}
	return model.DiffTime{Secs: secs, Nanos: nanos}, true
}

func parseDiffKind(field string) (model.DiffKind, bool) {
	switch field {
	case "-":
		return model.Removed, true
	case "+":
		return model.Created, true
	case "M":
		return model.Modified, true
	case "R":
		return model.Renamed, true
	default:
		return 0, false
	}
}
