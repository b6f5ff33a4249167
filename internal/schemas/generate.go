// Package schemas generates per-sourcetype field-schema YAML files from the
// inventory, one file per distinct sourcetype, bucketed by family.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arminjalali/soc-usecase-factory/internal/artifact"
	"github.com/arminjalali/soc-usecase-factory/internal/inventory"
)

// Field describes one event field a sourcetype is expected to carry.
type Field struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// FileSchema is the YAML document written per sourcetype.
type FileSchema struct {
	Sourcetype string  `yaml:"sourcetype"`
	Fields     []Field `yaml:"fields"`
}

// defaultFieldsByFamily are the starter field sets per family; operators
// refine them by hand or replace them with templates.
var defaultFieldsByFamily = map[string][]Field{
	"windows": {
		{Name: "EventCode", Type: "integer", Description: "Windows event ID / Sysmon event type"},
		{Name: "ComputerName", Type: "string", Description: "Hostname"},
		{Name: "User", Type: "string", Description: "User principal if present"},
		{Name: "Image", Type: "string", Description: "Process image path (if present)"},
		{Name: "CommandLine", Type: "string", Description: "Process command line (if present)"},
		{Name: "IpAddress", Type: "string", Description: "Source IP (if present)"},
	},
	"network": {
		{Name: "src_ip", Type: "string", Description: "Source IP"},
		{Name: "src_port", Type: "integer", Description: "Source port"},
		{Name: "dest_ip", Type: "string", Description: "Destination IP"},
		{Name: "dest_port", Type: "integer", Description: "Destination port"},
		{Name: "protocol", Type: "string", Description: "Network protocol"},
		{Name: "message_id", Type: "string", Description: "Vendor message/ID if applicable"},
	},
	"cloud": {
		{Name: "eventTime", Type: "string", Description: "Event timestamp"},
		{Name: "eventSource", Type: "string", Description: "Service that generated the event"},
		{Name: "eventName", Type: "string", Description: "Operation/API name"},
		{Name: "userIdentity.type", Type: "string", Description: "Identity type"},
		{Name: "sourceIPAddress", Type: "string", Description: "Client IP"},
		{Name: "errorCode", Type: "string", Description: "Error code if present"},
	},
	"saas": {
		{Name: "CreationTime", Type: "string", Description: "Event time / sign-in time"},
		{Name: "Operation", Type: "string", Description: "Operation/Activity name"},
		{Name: "UserId", Type: "string", Description: "User identifier / UPN"},
		{Name: "ClientIP", Type: "string", Description: "Client IP"},
		{Name: "ResultStatus", Type: "string", Description: "Succeeded/Failed (or error code)"},
	},
	"edr": {
		{Name: "computer_name", Type: "string", Description: "Endpoint name"},
		{Name: "event_type", Type: "string", Description: "Event category"},
		{Name: "action", Type: "string", Description: "Action taken"},
		{Name: "file_path", Type: "string", Description: "File path"},
		{Name: "file_hash", Type: "string", Description: "File hash (SHA1/SHA256)"},
	},
	"linux": {
		{Name: "host", Type: "string", Description: "Hostname"},
		{Name: "process", Type: "string", Description: "Process name (if present)"},
		{Name: "user", Type: "string", Description: "User (if present)"},
		{Name: "message", Type: "string", Description: "Log message"},
	},
	"other": {
		{Name: "host", Type: "string", Description: "Hostname (if present)"},
		{Name: "message", Type: "string", Description: "Log message"},
	},
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename converts a sourcetype into a stable schema filename:
// WinEventLog:Security -> wineventlog_security.yaml.
func Filename(sourcetype string) string {
	name := sourcetype
	name = strings.ReplaceAll(name, "WinEventLog:", "wineventlog_")
	name = strings.ReplaceAll(name, "XmlWinEventLog:", "xmlwineventlog_")
	name = strings.ReplaceAll(name, "Script:", "script_")
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	return strings.ToLower(name) + ".yaml"
}

// Generate writes one schema file per distinct sourcetype under
// outDir/<family>/<filename>. A template at templatesDir/<family>/<file> or
// templatesDir/<file> wins over the generated defaults. Returns the number
// of files written; output order is deterministic (sorted sourcetypes).
func Generate(sources []inventory.LogSource, outDir, templatesDir string) (int, error) {
	bySourcetype := map[string]string{} // sourcetype -> family
	for _, s := range sources {
		st := strings.TrimSpace(s.Sourcetype)
		if st == "" {
			continue
		}
		if _, ok := bySourcetype[st]; !ok {
			bySourcetype[st] = s.EffectiveFamily()
		}
	}

	sourcetypes := make([]string, 0, len(bySourcetype))
	for st := range bySourcetype {
		sourcetypes = append(sourcetypes, st)
	}
	sort.Strings(sourcetypes)

	written := 0
	for _, st := range sourcetypes {
		family := bySourcetype[st]
		filename := Filename(st)
		outPath := filepath.Join(outDir, family, filename)

		if copied, err := copyTemplate(templatesDir, family, filename, outPath); err != nil {
			return written, err
		} else if copied {
			written++
			continue
		}

		fields, ok := defaultFieldsByFamily[family]
		if !ok {
			fields = defaultFieldsByFamily["other"]
		}
		data, err := yaml.Marshal(FileSchema{Sourcetype: st, Fields: fields})
		if err != nil {
			return written, fmt.Errorf("marshal schema for %s: %w", st, err)
		}
		if err := artifact.WriteFile(outPath, data); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// copyTemplate copies an operator template over the default, if one exists.
// Checks <templates>/<family>/<file> then <templates>/<file>.
func copyTemplate(templatesDir, family, filename, outPath string) (bool, error) {
	if templatesDir == "" {
		return false, nil
	}
	for _, src := range []string{
		filepath.Join(templatesDir, family, filename),
		filepath.Join(templatesDir, filename),
	} {
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return false, fmt.Errorf("read template %s: %w", src, err)
		}
		if err := artifact.WriteFile(outPath, data); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
