// Command jv validates a JSON document against a JSON Schema, fetching
// remote schemas referenced from it.
//
//	jv [flags] <schema.json> <data.json>
//
// It exits with 0 when the document is valid, 1 when it is invalid or
// could not be checked, and 2 on usage errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/schemaval/validate"
	"github.com/schemaval/validate/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := validate.DefaultOptions()
	flags := pflag.NewFlagSet("jv", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&opts.Engine, "engine", opts.Engine, "evaluation engine: jsonschema or gojsonschema")
	flags.StringVar(&opts.Draft, "draft", opts.Draft, "draft used when '$schema' is missing: 4, 6, 7, 2019 or 2020")
	flags.BoolVar(&opts.AssertFormat, "assert-format", opts.AssertFormat, "treat 'format' as an assertion (gojsonschema always does)")
	flags.BoolVar(&opts.ECMARegexp, "ecma-regexp", opts.ECMARegexp, "evaluate 'pattern' with ECMA-262 semantics (jsonschema engine only)")
	flags.StringVar(&opts.Language, "lang", opts.Language, "language of error messages (gojsonschema supports en only)")
	flags.DurationVar(&opts.FetchTimeout, "timeout", opts.FetchTimeout, "timeout for each remote schema fetch")
	flags.IntVar(&opts.FetchRetries, "retries", opts.FetchRetries, "retries for failed remote schema fetches")
	flags.IntVar(&opts.MaxConcurrentFetches, "max-fetches", opts.MaxConcurrentFetches, "remote schemas fetched in parallel")
	flags.BoolVarP(&opts.Insecure, "insecure", "k", false, "skip TLS certificate verification")
	output := flags.StringP("output", "o", report.FormatJSON, "violation format: json or text")
	colorMode := flags.String("color", report.ColorAuto, "colored markers: auto, always or never")
	verbose := flags.BoolP("verbose", "v", false, "log remote fetches to stderr")

	usage := fmt.Sprintf("usage: jv [flags] <schema.json> <data.json>\n\nflags:\n%s", flags.FlagUsages())
	plain, _ := report.New(stdout, stderr, report.FormatJSON, report.ColorNever)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(stdout, usage)
			return report.ExitValid
		}
		return plain.Usage(err.Error(), usage)
	}
	r, err := report.New(stdout, stderr, *output, *colorMode)
	if err != nil {
		return plain.Usage(err.Error(), usage)
	}
	if flags.NArg() != 2 {
		return r.Usage(fmt.Sprintf("expected 2 arguments, got %d", flags.NArg()), usage)
	}

	opts.Logger = newLogger(stderr, *verbose)
	p, err := validate.New(opts)
	if err != nil {
		return r.Usage(err.Error(), usage)
	}
	return r.Report(p.Run(context.Background(), flags.Arg(0), flags.Arg(1)))
}
