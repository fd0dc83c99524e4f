package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/chazu/surfdist/pkg/script"
)

// App runs scripts for the CLI.
type App struct {
	engine *script.Engine
	log    *slog.Logger
}

// EvalErrorData is a serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line" yaml:"line"`
	Message string `json:"message" yaml:"message"`
}

// EvalResult is the full result of one evaluation as written to stdout.
type EvalResult struct {
	Source string          `json:"source,omitempty" yaml:"source,omitempty"`
	Result *script.Result  `json:"result,omitempty" yaml:"result,omitempty"`
	Errors []EvalErrorData `json:"errors" yaml:"errors"`
}

// NewApp creates an App with a script engine configured by opts.
func NewApp(log *slog.Logger, opts ...script.Option) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts = append([]script.Option{script.WithLogger(log)}, opts...)
	return &App{
		engine: script.NewEngine(opts...),
		log:    log,
	}
}

// Evaluate runs source and collects the outcome. Fatal errors (timeout,
// panic) are reported like eval errors, without a line.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{Errors: []EvalErrorData{}}

	res, evalErrs, err := a.engine.Evaluate(ctx, source)
	if err != nil {
		a.log.Error("evaluation failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    e.Line,
			Message: e.Message,
		})
	}
	result.Result = res

	if res != nil {
		for _, q := range res.Queries {
			for _, s := range q.Skipped {
				a.log.Warn("primitive skipped", "group", q.Group, "reason", s)
			}
			if !q.Completed {
				a.log.Warn("query interrupted", "group", q.Group, "radius", q.Radius)
			}
		}
	}
	return result
}

// Output formats accepted by Encode.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Encode writes r to w in the given format.
func Encode(w io.Writer, r EvalResult, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q, expected yaml or json", format)
}
