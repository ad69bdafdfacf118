// Package report prints validation outcomes and maps them to exit codes.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"

	"github.com/schemaval/validate"
)

// Exit codes.
const (
	ExitValid   = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Output formats for violation lists.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Reporter writes outcomes to a pair of streams.
type Reporter struct {
	stdout, stderr io.Writer
	format         string
	green, red     *color.Color
	redErr         *color.Color
}

// New returns a Reporter. format is FormatJSON or FormatText, colorMode
// one of the Color constants.
func New(stdout, stderr io.Writer, format, colorMode string) (*Reporter, error) {
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatText:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	r := &Reporter{
		stdout: stdout,
		stderr: stderr,
		format: format,
		green:  color.New(color.FgGreen, color.Bold),
		red:    color.New(color.FgRed, color.Bold),
		redErr: color.New(color.FgRed, color.Bold),
	}
	outColor, errColor := false, false
	switch colorMode {
	case "", ColorAuto:
		outColor, errColor = isTerminal(stdout), isTerminal(stderr)
	case ColorAlways:
		outColor, errColor = true, true
	case ColorNever:
	default:
		return nil, fmt.Errorf("unknown color mode %q", colorMode)
	}
	setColor(outColor, r.green, r.red)
	setColor(errColor, r.redErr)
	return r, nil
}

func setColor(enabled bool, cs ...*color.Color) {
	for _, c := range cs {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Report prints outcome and returns the process exit code for it.
func (r *Reporter) Report(outcome validate.Outcome) int {
	switch outcome.Status {
	case validate.StatusValid:
		r.green.Fprintln(r.stdout, "✅ Validation successful!")
		return ExitValid
	case validate.StatusInvalid:
		r.red.Fprintln(r.stdout, "❌ Validation failed!")
		r.printErrors(outcome.Errors)
		return ExitFailure
	default:
		r.redErr.Fprint(r.stderr, "❌ Validation error: ")
		fmt.Fprintln(r.stderr, outcome.Err)
		var serr *validate.SchemaError
		if errors.As(outcome.Err, &serr) && len(serr.Details) > 0 {
			r.printErrors(serr.Details)
		}
		return ExitFailure
	}
}

func (r *Reporter) printErrors(errs []validate.ValidationError) {
	if r.format == FormatText {
		for _, e := range errs {
			fmt.Fprintf(r.stdout, "  %s\n", e)
		}
		return
	}
	if errs == nil {
		errs = []validate.ValidationError{}
	}
	b, err := json.MarshalIndent(errs, "", "  ")
	if err != nil {
		fmt.Fprintf(r.stderr, "encoding errors: %v\n", err)
		return
	}
	fmt.Fprintln(r.stdout, string(b))
}

// Usage prints a usage error and returns ExitUsage.
func (r *Reporter) Usage(msg, usage string) int {
	if msg != "" {
		r.redErr.Fprint(r.stderr, "❌ ")
		fmt.Fprintln(r.stderr, msg)
	}
	fmt.Fprint(r.stderr, usage)
	return ExitUsage
}
