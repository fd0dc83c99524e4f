package geodesic

import "go.trai.ch/zerr"

// ErrInvalidMetric is returned for metrics the engine does not compute.
// Euclidean and projected falloff are the caller's business.
var ErrInvalidMetric = zerr.New("metric not supported by the geodesic engine")
