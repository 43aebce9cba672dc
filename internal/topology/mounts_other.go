//go:build !linux

package topology

import (
	"context"
	"os/exec"
	"strings"
)

// platformMounts invokes the `mount` executable and parses its output,
// tolerating both the GNU form:
//
//	tank/home on /tank/home type zfs (rw,relatime,xattr,noacl)
//
// and the BSD/Busybox form:
//
//	tank/home on /tank/home (zfs, local)
func platformMounts() ([]rawMount, error) {
	out, err := exec.CommandContext(context.Background(), "mount").Output()
	if err != nil {
		return nil, err
	}

	var mounts []rawMount
	for _, line := range strings.Split(string(out), "\n") {
		m, ok := parseMountLine(line)
		if !ok {
			continue
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

func parseMountLine(line string) (rawMount, bool) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	// "<source> on <target> type <fstype> (<options>)"
	// or "<source> on <target> (<fstype>, <options...>)"
	if len(fields) < 3 || fields[1] != "on" {
		return rawMount{}, false
	}
	source := fields[0]
	target := fields[2]

	if idx := indexOf(fields, "type"); idx >= 0 && idx+1 < len(fields) {
		fstype := fields[idx+1]
		options := ""
		if idx+2 < len(fields) {
			options = strings.Trim(strings.Join(fields[idx+2:], " "), "()")
		}
		return rawMount{source: source, target: target, fstype: fstype, options: options}, true
	}

	// BSD/Busybox: the parenthesized group is "fstype, opt1, opt2, ...".
	paren := strings.Join(fields[3:], " ")
	paren = strings.TrimPrefix(strings.TrimSuffix(paren, ")"), "(")
	parts := strings.SplitN(paren, ",", 2)
	if len(parts) == 0 || parts[0] == "" {
		return rawMount{}, false
	}
	fstype := strings.TrimSpace(parts[0])
	options := ""
	if len(parts) > 1 {
		options = strings.TrimSpace(parts[1])
	}
	return rawMount{source: source, target: target, fstype: fstype, options: options}, true
}

func indexOf(fields []string, s string) int {
	for i, f := range fields {
		if f == s {
			return i
		}
	}
	return -1
}
