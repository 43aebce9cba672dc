//go:build linux

package topology

import (
	"bufio"
	"os"
	"strings"
)

const procMountsPath = "/proc/self/mounts"

// platformMounts parses the kernel-exported mount table directly, the way
// the teacher's disk-handling tests and nestybox-sysbox-fs's mountinfo
// parser read /proc entries rather than shelling out. Each non-comment
// line is: "source target fstype options dump pass". A parse error on a
// single line is silently skipped; the caller decides whether an empty
// result is fatal.
func platformMounts() ([]rawMount, error) {
	f, err := os.Open(procMountsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mounts []rawMount
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		mounts = append(mounts, rawMount{
			source:  unescapeMountField(fields[0]),
			target:  unescapeMountField(fields[1]),
			fstype:  fields[2],
			options: fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}

// unescapeMountField decodes the octal escapes (\040 for space, etc.) the
// kernel uses in /proc/self/mounts fields.
func unescapeMountField(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			v := (int(s[i+1]-'0') << 6) | (int(s[i+2]-'0') << 3) | int(s[i+3]-'0')
			b.WriteByte(byte(v))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(b byte) bool { return b >= '0' && b <= '7' }
