// Package convert isolates legacy binary document decoding behind an
// interface. The core pipeline has no platform dependency on whatever tool
// actually decodes .doc or .pdf payloads; it only sees a text pair.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cbp-tools/rulings-review/internal/common"
)

// Format tells the converter what the raw payload is.
type Format string

const (
	FormatDoc Format = "doc" // Compound File Binary legacy Word document
	FormatPDF Format = "pdf"
)

// LegacyConverter turns raw legacy document bytes into the normalized/pretty
// text pair. Implementations may shell out to external applications.
type LegacyConverter interface {
	Convert(ctx context.Context, raw []byte, format Format) (normalized, pretty string, err error)
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Config selects the external binaries used for each format.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Antiword  string // binary name or absolute path; if empty -> "antiword"
}

// ExecConverter decodes legacy payloads by invoking external tools.
//
// The tool instance is treated as exclusive: concurrent conversions are
// serialized so a shared external application is never driven from two
// conversions at once.
type ExecConverter struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
	mu     sync.Mutex
}

func NewExecConverter(cfg Config, runner Runner, logger *slog.Logger) *ExecConverter {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Antiword == "" {
		cfg.Antiword = "antiword"
	}
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecConverter{cfg: cfg, runner: runner, logger: logger}
}

func (c *ExecConverter) Convert(ctx context.Context, raw []byte, format Format) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmpDir, err := os.MkdirTemp("", "rulings-conv-*")
	if err != nil {
		return "", "", fmt.Errorf("convert: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "input."+string(format))
	if err := os.WriteFile(in, raw, 0o600); err != nil {
		return "", "", fmt.Errorf("convert: write input: %w", err)
	}

	var text string
	switch format {
	case FormatPDF:
		out := filepath.Join(tmpDir, "output.txt")
		if _, errb, err := c.runner.Run(ctx, c.cfg.Pdftotext, "-layout", in, out); err != nil {
			return "", "", fmt.Errorf("convert: pdftotext: %w: %s", err, truncate(string(errb), 512))
		}
		data, err := os.ReadFile(out)
		if err != nil {
			return "", "", fmt.Errorf("convert: read pdftotext output: %w", err)
		}
		text = string(data)
	case FormatDoc:
		stdout, errb, err := c.runner.Run(ctx, c.cfg.Antiword, in)
		if err != nil {
			return "", "", fmt.Errorf("convert: antiword: %w: %s", err, truncate(string(errb), 512))
		}
		text = string(stdout)
	default:
		return "", "", fmt.Errorf("convert: unsupported format %q", format)
	}

	pretty := prettyFromPlain(text)
	if pretty == "" {
		return "", "", fmt.Errorf("convert: %s produced no text", format)
	}
	return common.CollapseWS(pretty), pretty, nil
}

// prettyFromPlain keeps line structure while dropping blank padding lines.
func prettyFromPlain(text string) string {
	text = common.NormalizeText(text)
	lines := make([]string, 0, 64)
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n")
}
