// Package script evaluates the surfdist Lisp DSL. A script builds a mesh
// document (points, polygons, curves, patches, tessellated solids), defines
// point groups and runs distance queries against a geodesic engine. Each
// evaluation runs in a fresh zygomys sandbox with its own document and
// engine.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/surfdist/pkg/kernel"
	"github.com/chazu/surfdist/pkg/kernel/sdfx"
	"github.com/chazu/surfdist/pkg/mesh"
)

// EvalError is a parse or runtime error in user code.
type EvalError struct {
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is everything an evaluation produced.
type Result struct {
	Document *mesh.Detail `json:"-" yaml:"-"`
	Points   int          `json:"points" yaml:"points"`
	Prims    int          `json:"primitives" yaml:"primitives"`
	Groups   []string     `json:"groups,omitempty" yaml:"groups,omitempty"`
	Queries  []Query      `json:"queries,omitempty" yaml:"queries,omitempty"`
}

// Query records one distance query.
type Query struct {
	Attribute string          `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Group     string          `json:"group" yaml:"group"`
	Metric    string          `json:"metric" yaml:"metric"`
	Radius    float64         `json:"radius" yaml:"radius"`
	Symmetry  string          `json:"symmetry,omitempty" yaml:"symmetry,omitempty"`
	Rolloff   string          `json:"rolloff" yaml:"rolloff"`
	Action    string          `json:"action" yaml:"action"`
	Completed bool            `json:"completed" yaml:"completed"`
	Skipped   []string        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Points    []PointDistance `json:"points" yaml:"points"`
}

// PointDistance is one affected point of a query.
type PointDistance struct {
	Point    int     `json:"point" yaml:"point"`
	Distance float64 `json:"distance" yaml:"distance"`
	Source   int     `json:"source" yaml:"source"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// Engine evaluates scripts. It is safe for concurrent use; every call to
// Evaluate gets a fresh sandbox, and a newer call supersedes older ones.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	kernel  kernel.Kernel
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithKernel selects the solid modeling kernel used by solid builtins.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) {
		if k != nil {
			e.kernel = k
		}
	}
}

// WithLogger routes evaluation and distance engine diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine returns an engine using the sdfx kernel.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, kernel: sdfx.New()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Evaluate runs source and returns what it built.
//
// Return semantics:
//   - On success: result + nil eval errors + nil error
//   - On parse/eval failure: nil result + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
//
// Cancelling ctx stops running distance queries at their next frontier pop.
func (e *Engine) Evaluate(ctx context.Context, source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("script: panic during evaluation: %v", r)}
			}
		}()
		res, evalErrs, err := e.evaluate(ctx, source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	res, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
	cancel()
	return res, evalErrs, err
}

func (e *Engine) evaluate(ctx context.Context, source string) (*Result, []EvalError, error) {
	s := newSession(ctx, e.kernel, e.logger)
	if strings.TrimSpace(source) == "" {
		return s.result(), nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	s.register(env)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	e.logger.Debug("script evaluated",
		"points", s.doc.NumPoints(),
		"primitives", s.doc.NumPrimitives(),
		"queries", len(s.queries),
	)
	return s.result(), nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError turns a zygomys error into EvalErrors, extracting the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
