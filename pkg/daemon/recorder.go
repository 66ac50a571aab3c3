package daemon

import (
	"sync"
	"time"

	"github.com/charlie0129/tankmon/pkg/types"
)

// historySize is the number of sampled readings kept for GET /history.
const historySize = 60

// ReadingRecorder records the last N readings.
type ReadingRecorder struct {
	MaxRecordCount int
	records        []types.Record
	mu             *sync.Mutex
}

// NewReadingRecorder returns a new ReadingRecorder.
func NewReadingRecorder(maxRecordCount int) *ReadingRecorder {
	return &ReadingRecorder{
		MaxRecordCount: maxRecordCount,
		records:        make([]types.Record, 0, maxRecordCount),
		mu:             &sync.Mutex{},
	}
}

// AddRecord adds a new record, dropping the oldest one when full.
func (r *ReadingRecorder) AddRecord(rec types.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	rec.At = rec.At.Round(0)

	if len(r.records) >= r.MaxRecordCount {
		r.records = r.records[1:]
	}
	r.records = append(r.records, rec)
}

// GetRecords returns a copy of the records, oldest first.
func (r *ReadingRecorder) GetRecords() []types.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Record, len(r.records))
	copy(out, r.records)
	return out
}

// GetRecordsIn returns the records taken within last before now, oldest first.
func (r *ReadingRecorder) GetRecordsIn(last time.Duration, now time.Time) []types.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := len(r.records)
	for i > 0 && now.Sub(r.records[i-1].At) <= last {
		i--
	}

	out := make([]types.Record, len(r.records)-i)
	copy(out, r.records[i:])
	return out
}
