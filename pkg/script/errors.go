package script

import "go.trai.ch/zerr"

var (
	// ErrNoDocument is returned by distance queries on a document without
	// points.
	ErrNoDocument = zerr.New("document has no points")
	// ErrUnknownGroup is returned when a query names an undefined group.
	ErrUnknownGroup = zerr.New("unknown group")
	// ErrUnknownRolloff is returned for rolloff names ParseRolloff does not
	// know.
	ErrUnknownRolloff = zerr.New("unknown rolloff")
	// ErrNoQuery is returned by per-point accessors before any distance
	// query ran.
	ErrNoQuery = zerr.New("no distance query has run")
)
