package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/volley/internal/loadtest"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat converts a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Write renders s to w in the given format. Colors only apply to text.
func Write(w io.Writer, s *loadtest.Summary, format OutputFormat, scheme *ColorScheme) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return WriteText(w, s, scheme)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// ReportPath returns where WriteReportFile puts the report for profile.
func ReportPath(dir, profile string) string {
	if profile == "" {
		profile = "default"
	}
	return filepath.Join(dir, fmt.Sprintf("volley_report_%s.txt", profile))
}

// WriteReportFile writes the uncolored text report to
// <dir>/volley_report_<profile>.txt, creating dir when needed.
func WriteReportFile(dir, profile string, s *loadtest.Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := ReportPath(dir, profile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}

	if err := WriteText(f, s, NoColorScheme()); err != nil {
		f.Close()
		return "", fmt.Errorf("writing report file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report file: %w", err)
	}
	return path, nil
}
