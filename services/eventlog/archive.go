package eventlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("eventlog: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("eventlog: cbor dec mode: %v", err))
	}
}

// SessionHeader is the first item of every archive file.
type SessionHeader struct {
	BootID  string    `cbor:"1,keyasint"`
	Started time.Time `cbor:"2,keyasint"`
	Board   string    `cbor:"3,keyasint,omitempty"`
}

// ArchivedRecord is one archived event.
type ArchivedRecord struct {
	Seq    uint64    `cbor:"1,keyasint"`
	Wall   time.Time `cbor:"2,keyasint"`
	Record Record    `cbor:"3,keyasint"`
}

// ArchiveSink appends records to <dir>/events-<bootid>.cbor as a CBOR
// sequence: one SessionHeader followed by ArchivedRecords.
type ArchiveSink struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	bootID uuid.UUID
	seq    uint64
	closed bool
	now    func() time.Time
}

func NewArchiveSink(dir, board string) (*ArchiveSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	id := uuid.New()
	path := filepath.Join(dir, "events-"+id.String()+".cbor")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	a := &ArchiveSink{file: f, enc: encMode.NewEncoder(f), bootID: id, now: time.Now}
	if err := a.enc.Encode(SessionHeader{BootID: id.String(), Started: a.now(), Board: board}); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func (a *ArchiveSink) BootID() uuid.UUID { return a.bootID }
func (a *ArchiveSink) Path() string      { return a.file.Name() }

func (a *ArchiveSink) Log(r Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.seq++
	// Encoding errors are dropped; the archive must not stall the loop.
	_ = a.enc.Encode(ArchivedRecord{Seq: a.seq, Wall: a.now(), Record: r})
}

// Close is idempotent.
func (a *ArchiveSink) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.file.Close()
}

// ReadArchive decodes an archive stream.
func ReadArchive(r io.Reader) (SessionHeader, []ArchivedRecord, error) {
	dec := decMode.NewDecoder(r)
	var h SessionHeader
	if err := dec.Decode(&h); err != nil {
		return h, nil, err
	}
	var out []ArchivedRecord
	for {
		var rec ArchivedRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return h, out, nil
		}
		if err != nil {
			return h, out, err
		}
		out = append(out, rec)
	}
}

var _ Logger = (*ArchiveSink)(nil)
