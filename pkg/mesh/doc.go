// Package mesh defines the read-only mesh document surface consumed by the
// distance core, together with an in-memory implementation (Detail) used by
// the script engine, the geometry kernel and tests.
package mesh
