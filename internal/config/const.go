package config

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/model"
)

// Environment variables consumed by the Alias & Alt-Replicated Resolver and
// the Path Resolver, per the external-interfaces contract.
const (
	// EnvAliases is a comma-separated list of LOCAL:REMOTE alias pairs.
	EnvAliases = "HTTM_MAP_ALIASES"
	// EnvRemoteDir names the remote side of a single implicit alias pair.
	EnvRemoteDir = "HTTM_REMOTE_DIR"
	// EnvLocalDir names the local side of a single implicit alias pair.
	EnvLocalDir = "HTTM_LOCAL_DIR"
	// EnvSnapPoint is the legacy alias of EnvRemoteDir, kept for backward
	// compatibility with earlier versions of this tool.
	EnvSnapPoint = "HTTM_SNAP_POINT"
	// EnvUser is consulted for privilege and `zfs allow` checks.
	EnvUser = "USER"
)

// TEXTDOMAIN is the gettext domain name this project's translations are
// bound under.
const TEXTDOMAIN = "httm-go"

// DefaultSnapshotSuffix is the user-visible default suffix appended to
// on-demand snapshot names.
const DefaultSnapshotSuffix = "httmSnapFileMount"

// GuardSnapshotPrefix prefixes every precautionary snapshot the Snapshot
// Guard takes: "<dataset>@httmSnapGuard-<UTC-timestamp>-<pre|post>[-<name>]-<uuid8>".
const GuardSnapshotPrefix = "httmSnapGuard"

// GuardTimestampFormat renders the UTC timestamp embedded in guard snapshot
// names.
const GuardTimestampFormat = "20060102-150405"

// GuardSnapshotName builds the name (without dataset prefix) of a guard
// snapshot, e.g. "httmSnapGuard-20240102-150405-pre-3f9c2a11". The trailing
// uuid segment disambiguates guards taken within the same wall-clock second
// (e.g. a roll-forward retried immediately after a failed attempt), since
// the timestamp alone only has one-second resolution.
func GuardSnapshotName(at time.Time, kind string, originalSnapName string) string {
	name := GuardSnapshotPrefix + "-" + at.UTC().Format(GuardTimestampFormat) + "-" + kind
	if originalSnapName != "" {
		name += "-" + originalSnapName
	}
	name += "-" + uuid.New().String()[:8]
	return name
}

// ValidateSnapshotSuffix rejects whitespace in an on-demand snapshot suffix,
// per the documented "whitespace in suffixes is rejected" rule.
func ValidateSnapshotSuffix(suffix string) error {
	if strings.ContainsAny(suffix, " \t\n\r") {
		return model.NewResolutionError(i18n.G("snapshot suffix %q must not contain whitespace"), suffix)
	}
	return nil
}
