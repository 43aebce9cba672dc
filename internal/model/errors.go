// Package model holds the data types shared across the topology, path
// resolution, version, deleted-walk and roll-forward packages: the
// PathDescriptor/MountRecord/SnapshotIndex/DiffEvent/HardLinkMap family
// described by the system's data model.
package model

import "fmt"

// TopologyError signals no datasets, unparseable mounts, or an unknown
// filesystem type.
type TopologyError struct {
	msg string
}

func (e *TopologyError) Error() string { return e.msg }

// NewTopologyError builds a TopologyError.
func NewTopologyError(format string, args ...interface{}) error {
	return &TopologyError{msg: fmt.Sprintf(format, args...)}
}

// ResolutionError signals a query path not under any known dataset, or an
// alias parse failure.
type ResolutionError struct {
	msg string
}

func (e *ResolutionError) Error() string { return e.msg }

// NewResolutionError builds a ResolutionError.
func NewResolutionError(format string, args ...interface{}) error {
	return &ResolutionError{msg: fmt.Sprintf(format, args...)}
}

// ExternalProcessError signals the zfs/btrfs executable is missing, exited
// non-zero, or produced unparseable output.
type ExternalProcessError struct {
	msg string
	err error
}

func (e *ExternalProcessError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ExternalProcessError) Unwrap() error { return e.err }

// NewExternalProcessError builds an ExternalProcessError wrapping err.
func NewExternalProcessError(msg string, err error) error {
	return &ExternalProcessError{msg: msg, err: err}
}

// PrivilegeError signals the operation requires superuser or `zfs allow`
// permissions the current user lacks.
type PrivilegeError struct {
	msg string
}

func (e *PrivilegeError) Error() string { return e.msg }

// NewPrivilegeError builds a PrivilegeError.
func NewPrivilegeError(format string, args ...interface{}) error {
	return &PrivilegeError{msg: fmt.Sprintf(format, args...)}
}

// VerificationError signals a post-roll-forward metadata mismatch.
type VerificationError struct {
	msg string
}

func (e *VerificationError) Error() string { return e.msg }

// NewVerificationError builds a VerificationError.
func NewVerificationError(format string, args ...interface{}) error {
	return &VerificationError{msg: fmt.Sprintf(format, args...)}
}

// DiffParseError aggregates malformed zfs diff lines; the Diff Ingestor
// collects these across the whole stream and returns them together once it
// closes, so the caller can decide whether to continue.
type DiffParseError struct {
	Lines []string
}

func (e *DiffParseError) Error() string {
	return fmt.Sprintf("couldn't parse %d diff line(s)", len(e.Lines))
}
