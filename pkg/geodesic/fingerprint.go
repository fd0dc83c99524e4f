package geodesic

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint summarizes everything a cached result depends on. Comparing
// two fingerprints never touches geometry.
type Fingerprint struct {
	TopologyVersion uint64
	PositionVersion uint64
	Metric          Metric
	Radius          float64
	Symmetry        Symmetry
	SourceID        uint64
}

// sameInputs compares every field except Radius.
func (f Fingerprint) sameInputs(o Fingerprint) bool {
	return f.TopologyVersion == o.TopologyVersion &&
		f.PositionVersion == o.PositionVersion &&
		f.Metric == o.Metric &&
		f.Symmetry == o.Symmetry &&
		f.SourceID == o.SourceID
}

// normalizeSources drops out-of-range and duplicate points and returns the
// rest sorted.
func normalizeSources(pts []int, numPoints int) []int32 {
	out := make([]int32, 0, len(pts))
	for _, p := range pts {
		if p >= 0 && p < numPoints {
			out = append(out, int32(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, p := range out {
		if i == 0 || p != out[n-1] {
			out[n] = p
			n++
		}
	}
	return out[:n]
}

// sourceID digests the group name and its normalized members, so member
// order does not matter.
func sourceID(name string, sources []int32) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write([]byte{0})
	var buf [4]byte
	for _, s := range sources {
		binary.LittleEndian.PutUint32(buf[:], uint32(s))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
