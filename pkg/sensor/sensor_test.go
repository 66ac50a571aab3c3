package sensor

import (
	"errors"
	"testing"
	"time"
)

// fakePort replays chunks of bytes. Once the chunks run out, every read
// blocks for the full read timeout on the fake clock and returns nothing.
type fakePort struct {
	chunks  [][]byte
	clock   time.Time
	timeout time.Duration
	resets  int
	readErr error
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		p.clock = p.clock.Add(p.timeout)
		return 0, nil
	}
	p.clock = p.clock.Add(time.Millisecond)
	n := copy(b, p.chunks[0])
	p.chunks[0] = p.chunks[0][n:]
	if len(p.chunks[0]) == 0 {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error { p.timeout = t; return nil }
func (p *fakePort) ResetInputBuffer() error              { p.resets++; return nil }
func (p *fakePort) Close() error                         { p.closed = true; return nil }

func frame(mm int) []byte {
	h, l := byte(mm>>8), byte(mm)
	return []byte{0xFF, h, l, byte(0xFF + int(h) + int(l))}
}

func frames(mm, count int) []byte {
	var b []byte
	for i := 0; i < count; i++ {
		b = append(b, frame(mm)...)
	}
	return b
}

func newTestSerial(p *fakePort) *Serial {
	s := NewSerial(p, SerialOptions{Timeout: 100 * time.Millisecond})
	s.now = func() time.Time { return p.clock }
	return s
}

func TestSerialSample(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
		valid  bool
		wantCm float64
	}{
		{
			name:   "single frame",
			chunks: [][]byte{frame(1234)},
			valid:  true,
			wantCm: 123.4,
		},
		{
			name:   "frame split across reads",
			chunks: [][]byte{frame(300)[:2], frame(300)[2:]},
			valid:  true,
			wantCm: 30,
		},
		{
			name:   "leading garbage is skipped",
			chunks: [][]byte{{0x01, 0x02}, frame(500)},
			valid:  true,
			wantCm: 50,
		},
		{
			// ff 00 ff fe: the low byte looks like a header.
			name:   "stream starts at data high byte, low byte is 0xff",
			chunks: [][]byte{frame(255)[1:], frames(255, 10)},
			valid:  true,
			wantCm: 25.5,
		},
		{
			name:   "stream starts at data low byte, low byte is 0xff",
			chunks: [][]byte{frame(255)[2:], frames(255, 10)},
			valid:  true,
			wantCm: 25.5,
		},
		{
			// ff 02 fe ff: the checksum looks like a header.
			name:   "stream starts at data high byte, checksum is 0xff",
			chunks: [][]byte{frame(766)[1:], frames(766, 10)},
			valid:  true,
			wantCm: 76.6,
		},
		{
			name:   "stream starts at data low byte, checksum is 0xff",
			chunks: [][]byte{frame(766)[2:], frames(766, 10)},
			valid:  true,
			wantCm: 76.6,
		},
		{
			name:   "stream starts at checksum byte, checksum is 0xff",
			chunks: [][]byte{frame(766)[3:], frames(766, 10)},
			valid:  true,
			wantCm: 76.6,
		},
		{
			name:   "bad checksum is skipped",
			chunks: [][]byte{{0xFF, 0x01, 0x02, 0x00}, frame(777)},
			valid:  true,
			wantCm: 77.7,
		},
		{
			name:   "zero distance is invalid",
			chunks: [][]byte{frame(0)},
		},
		{
			name:   "beyond max range is invalid",
			chunks: [][]byte{frame(5000)},
		},
		{
			name: "no data times out",
		},
		{
			name:   "only corrupt frames times out",
			chunks: [][]byte{{0xFF, 0x01, 0x02, 0x00, 0xFF, 0x00}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePort{chunks: tt.chunks, clock: time.Unix(1000, 0)}
			start := p.clock
			got := newTestSerial(p).Sample()
			if got.Valid != tt.valid {
				t.Fatalf("Sample().Valid = %v, want %v", got.Valid, tt.valid)
			}
			if tt.valid && got.DistanceCm != tt.wantCm {
				t.Errorf("Sample().DistanceCm = %v, want %v", got.DistanceCm, tt.wantCm)
			}
			if elapsed := p.clock.Sub(start); elapsed > 100*time.Millisecond+10*time.Millisecond {
				t.Errorf("Sample() took %s, longer than its timeout", elapsed)
			}
			if p.resets != 1 {
				t.Errorf("input buffer reset %d times, want 1", p.resets)
			}
		})
	}
}

func TestSerialReadError(t *testing.T) {
	p := &fakePort{readErr: errors.New("device unplugged")}
	if got := newTestSerial(p).Sample(); got.Valid {
		t.Errorf("expected invalid sample on read error, got %+v", got)
	}
}

type scripted struct {
	samples []Sample
	closed  bool
}

func (s *scripted) Sample() Sample {
	v := s.samples[0]
	s.samples = s.samples[1:]
	return v
}

func (s *scripted) Close() error { s.closed = true; return nil }

func ok(cm float64) Sample { return Sample{DistanceCm: cm, Valid: true} }

func TestMedian(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		valid   bool
		wantCm  float64
	}{
		{"odd count", []Sample{ok(10), ok(90), ok(12)}, true, 12},
		{"invalid samples are ignored", []Sample{ok(10), {}, ok(14), ok(30)}, true, 14},
		{"half valid is enough and averages the middle", []Sample{ok(10), {}, ok(20), {}}, true, 15},
		{"mostly invalid", []Sample{{}, {}, ok(20)}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Median{Inner: &scripted{samples: tt.samples}, Count: len(tt.samples)}
			got := m.Sample()
			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.valid)
			}
			if got.DistanceCm != tt.wantCm {
				t.Errorf("DistanceCm = %v, want %v", got.DistanceCm, tt.wantCm)
			}
		})
	}
}

func TestSimulated(t *testing.T) {
	s := NewSimulated(40, 2, 0, 42)
	for i := 0; i < 100; i++ {
		got := s.Sample()
		if !got.Valid || got.DistanceCm < 38 || got.DistanceCm > 42 {
			t.Fatalf("sample %d out of bounds: %+v", i, got)
		}
	}

	failing := NewSimulated(40, 0, 1, 1)
	if got := failing.Sample(); got.Valid {
		t.Errorf("expected failure, got %+v", got)
	}
}
