package cage

import "go.trai.ch/zerr"

var (
	// ErrUnsupportedPrimitiveKind is recorded for primitives whose
	// connectivity cannot be expressed as a flat polygon cage.
	ErrUnsupportedPrimitiveKind = zerr.New("unsupported primitive kind")

	// ErrMalformedPrimitive is recorded for primitives whose vertex list
	// does not match their declared shape.
	ErrMalformedPrimitive = zerr.New("malformed primitive")
)
