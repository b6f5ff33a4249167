package inventory

import "strings"

// ClassifyFamily derives a log-source family from a SIEM sourcetype when
// the inventory row does not declare one. The buckets mirror the schema
// generator's categories so both tools agree on family names.
func ClassifyFamily(sourcetype string) string {
	st := strings.ToLower(strings.TrimSpace(sourcetype))
	// The windows bucket goes first: script: inputs classify as windows
	// even when their name mentions another platform.
	switch {
	case strings.HasPrefix(st, "wineventlog"), strings.HasPrefix(st, "xmlwineventlog"),
		strings.HasPrefix(st, "perfmon"), strings.HasPrefix(st, "script:"):
		return "windows"
	case strings.HasPrefix(st, "aws:"):
		return "cloud"
	case strings.HasPrefix(st, "ms:o365"), strings.HasPrefix(st, "ms:aad"), strings.Contains(st, "o365"):
		return "saas"
	case strings.HasPrefix(st, "cisco:"), strings.HasPrefix(st, "stream:"),
		strings.HasPrefix(st, "bro:"), strings.HasPrefix(st, "zeek:"):
		return "network"
	case strings.HasPrefix(st, "symantec:ep"), strings.HasPrefix(st, "osquery"):
		return "edr"
	case strings.HasPrefix(st, "unix:"), strings.HasPrefix(st, "linux_"),
		strings.Contains(st, "linux") && !strings.Contains(st, "wineventlog"):
		return "linux"
	}
	return "other"
}
