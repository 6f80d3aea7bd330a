package settlement

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/iJaack/evalanche/internal/storage"
	"github.com/iJaack/evalanche/pkg/types"
)

var journalPrefix = []byte("t/")

// Record is the journal entry of one transfer.
type Record struct {
	ID         string    `json:"id"`
	Direction  Direction `json:"direction"`
	Amount     uint64    `json:"amount"`
	ExportTxID types.ID  `json:"exportTxID"`
	ImportTxID types.ID  `json:"importTxID"`
	State      State     `json:"state"`
	LastError  string    `json:"lastError,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Exported reports whether the export was accepted.
func (r *Record) Exported() bool { return !r.ExportTxID.IsZero() }

// Unfinished reports whether the transfer may still need an import.
func (r *Record) Unfinished() bool {
	if r.State == StateComplete {
		return false
	}
	return r.Exported() || !r.State.Terminal()
}

func (r *Record) inTransit() bool {
	return r.Exported() && r.State != StateComplete
}

// Journal persists transfer records so funds in transit survive a restart.
type Journal struct {
	mu  sync.Mutex
	db  *storage.PrefixDB
	now func() time.Time
}

// NewJournal stores records under their own prefix in db.
func NewJournal(db storage.DB) *Journal {
	return &Journal{
		db:  storage.NewPrefixDB(db, journalPrefix),
		now: time.Now,
	}
}

// Create records a new transfer in the Idle state.
func (j *Journal) Create(d Direction, amount uint64) (*Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().UTC()
	id, err := newTransferID(d, amount, now)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		ID:        id,
		Direction: d,
		Amount:    amount,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := j.put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update stamps and stores rec.
func (j *Journal) Update(rec *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec.UpdatedAt = j.now().UTC()
	return j.put(rec)
}

func (j *Journal) put(rec *Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode transfer %s: %w", rec.ID, err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	if err := j.db.Put([]byte(rec.ID), data); err != nil {
		return fmt.Errorf("store transfer %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID.
func (j *Journal) Get(id string) (*Record, error) {
	data, err := j.db.Get([]byte(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load transfer %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode transfer %s: %w", id, err)
	}
	return &rec, nil
}

// List returns every record, oldest first.
func (j *Journal) List() ([]*Record, error) {
	var recs []*Record
	err := j.db.ForEach(nil, func(key, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode transfer %s: %w", key, err)
		}
		recs = append(recs, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(recs, func(a, b *Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return recs, nil
}

// Pending returns the unfinished transfers, oldest first.
func (j *Journal) Pending() ([]*Record, error) {
	all, err := j.List()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(r *Record) bool { return !r.Unfinished() }), nil
}

// Prune deletes records last updated before cutoff and returns how many
// were removed. Records with funds in transit are kept. A record that
// never got an export ID is stale once past the cutoff, e.g. after a
// crash mid-export, and is removed too.
func (j *Journal) Prune(cutoff time.Time) (int, error) {
	all, err := j.List()
	if err != nil {
		return 0, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	batch := j.db.NewBatch()
	n := 0
	for _, rec := range all {
		if rec.inTransit() || !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := batch.Delete([]byte(rec.ID)); err != nil {
			return 0, err
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return n, nil
}

// newTransferID hashes the request with a random salt so identical
// requests in the same instant still get distinct IDs.
func newTransferID(d Direction, amount uint64, at time.Time) (string, error) {
	var salt [8]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", fmt.Errorf("transfer id: %w", err)
	}
	h := blake3.New()
	h.Write([]byte(d.String()))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], amount)
	binary.BigEndian.PutUint64(buf[8:], uint64(at.UnixNano()))
	h.Write(buf[:])
	h.Write(salt[:])
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}
