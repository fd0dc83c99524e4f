package geodesic

import "log/slog"

// DefaultMirrorTolerance is used when a Symmetry leaves Tolerance at zero.
const DefaultMirrorTolerance = 1e-4

type options struct {
	logger          *slog.Logger
	mirrorTolerance float64
	capacity        int
}

// Option configures an Engine.
type Option func(*options)

// WithLogger routes engine diagnostics to logger. Pass nil to discard them.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMirrorTolerance sets the default distance within which a mirrored
// source snaps to an existing point, and within which a point counts as
// lying on the symmetry plane.
func WithMirrorTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.mirrorTolerance = tol
		}
	}
}

// WithInitialCapacity pre-sizes each walker's frontier.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		mirrorTolerance: DefaultMirrorTolerance,
		capacity:        64,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}
