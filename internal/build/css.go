package build

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/archipelago/internal/logging"
)

// StylesheetName is the CSS artifact written to the output root.
const StylesheetName = "styles.css"

// CSSBuilder runs the configured CSS tool over the stylesheet entry.
type CSSBuilder struct {
	fs        afero.Fs
	runner    ToolRunner
	logger    logging.Logger
	command   string
	input     string
	outputDir string
}

// NewCSSBuilder creates a builder. An empty command disables the step.
func NewCSSBuilder(fs afero.Fs, runner ToolRunner, logger logging.Logger, command, input, outputDir string) *CSSBuilder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CSSBuilder{
		fs:        fs,
		runner:    runner,
		logger:    logger.WithComponent("css"),
		command:   command,
		input:     input,
		outputDir: outputDir,
	}
}

// OutputPath is where the stylesheet is written.
func (c *CSSBuilder) OutputPath() string {
	return filepath.Join(c.outputDir, StylesheetName)
}

// Enabled reports whether Build will invoke the tool.
func (c *CSSBuilder) Enabled() bool {
	if strings.TrimSpace(c.command) == "" || c.input == "" {
		return false
	}
	ok, err := afero.Exists(c.fs, c.input)
	return err == nil && ok
}

// Build produces the stylesheet. It returns false without error when the
// step is disabled or the input file does not exist.
func (c *CSSBuilder) Build(ctx context.Context) (bool, error) {
	if !c.Enabled() {
		c.logger.Debug(ctx, "CSS step skipped", "input", c.input)
		return false, nil
	}

	if err := c.fs.MkdirAll(c.outputDir, 0o755); err != nil {
		return false, err
	}

	output := c.OutputPath()
	fields := strings.Fields(c.command)
	for i, f := range fields {
		f = strings.ReplaceAll(f, "{input}", c.input)
		fields[i] = strings.ReplaceAll(f, "{output}", output)
	}

	if err := runTool(ctx, c.runner, fields[0], fields[1:]...); err != nil {
		return false, err
	}

	c.logger.Info(ctx, "Stylesheet generated", "input", c.input, "output", output)
	return true, nil
}
