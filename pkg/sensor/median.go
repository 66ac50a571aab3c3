package sensor

import (
	"sort"
	"time"
)

// Median takes several samples from an inner sensor and reports the
// median of the valid ones. It is invalid unless at least half of the
// inner samples are valid. The worst-case latency is Count times the
// inner sensor's timeout.
type Median struct {
	Inner RangeSensor
	Count int
}

var _ RangeSensor = &Median{}

func (m *Median) Sample() Sample {
	count := m.Count
	if count <= 1 {
		return m.Inner.Sample()
	}

	var (
		distances = make([]float64, 0, count)
		first     time.Time
	)
	for i := 0; i < count; i++ {
		s := m.Inner.Sample()
		if i == 0 {
			first = s.At
		}
		if s.Valid {
			distances = append(distances, s.DistanceCm)
		}
	}

	if len(distances)*2 < count {
		return Invalid(first)
	}

	sort.Float64s(distances)
	mid := len(distances) / 2
	d := distances[mid]
	if len(distances)%2 == 0 {
		d = (distances[mid-1] + distances[mid]) / 2
	}
	return Sample{DistanceCm: d, Valid: true, At: first}
}

func (m *Median) Close() error {
	return m.Inner.Close()
}
