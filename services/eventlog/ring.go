package eventlog

import (
	"encoding/json"
	"sync"

	"ampctl-go/x/timex"
)

// DefaultCapacity is the number of records kept for the UI.
const DefaultCapacity = 20

// Ring keeps the most recent records, overwriting the oldest.
type Ring struct {
	mu   sync.Mutex
	buf  []Record
	next int
	n    int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Record, capacity)}
}

func (r *Ring) Log(rec Record) {
	r.mu.Lock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
	r.mu.Unlock()
}

// Records returns a copy, newest first.
func (r *Ring) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, r.n)
	i := r.next
	for k := 0; k < r.n; k++ {
		i = (i - 1 + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[i])
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Entry is the JSON shape of one record in a dump.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Record
}

// Dump is the JSON document served on /logs.
type Dump struct {
	Logs []Entry `json:"logs"`
}

func (r *Ring) Dump() Dump {
	recs := r.Records()
	d := Dump{Logs: make([]Entry, 0, len(recs))}
	for _, rec := range recs {
		d.Logs = append(d.Logs, Entry{Timestamp: timex.HMS(uint32(rec.At)), Record: rec})
	}
	return d
}

// JSON renders Dump.
func (r *Ring) JSON() ([]byte, error) {
	return json.Marshal(r.Dump())
}

var _ Logger = (*Ring)(nil)
