package settlement

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iJaack/evalanche/internal/storage"
	"github.com/iJaack/evalanche/pkg/types"
)

func journalBackends(t *testing.T) map[string]storage.DB {
	t.Helper()
	bdb, err := storage.NewBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { bdb.Close() })
	return map[string]storage.DB{
		"memory": storage.NewMemory(),
		"badger": bdb,
	}
}

func TestJournal_Lifecycle(t *testing.T) {
	for name, db := range journalBackends(t) {
		t.Run(name, func(t *testing.T) {
			j := NewJournal(db)
			d := Direction{From: types.ChainC, To: types.ChainX}

			rec, err := j.Create(d, 3*types.AVAX)
			require.NoError(t, err)
			require.Len(t, rec.ID, 32)
			require.Equal(t, StateIdle, rec.State)
			require.True(t, rec.Unfinished())

			rec.ExportTxID = types.HashID([]byte("export"))
			rec.State = StateAwaitingConfirmation
			rec.LastError = "timed out"
			require.NoError(t, j.Update(rec))

			got, err := j.Get(rec.ID)
			require.NoError(t, err)
			require.Equal(t, d, got.Direction)
			require.Equal(t, 3*types.AVAX, got.Amount)
			require.Equal(t, rec.ExportTxID, got.ExportTxID)
			require.True(t, got.ImportTxID.IsZero())
			require.Equal(t, StateAwaitingConfirmation, got.State)
			require.Equal(t, "timed out", got.LastError)
			require.False(t, got.UpdatedAt.Before(got.CreatedAt))

			_, err = j.Get("nope")
			require.ErrorIs(t, err, ErrTransferNotFound)
		})
	}
}

func TestJournal_PendingFilter(t *testing.T) {
	j := NewJournal(storage.NewMemory())
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	j.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	mk := func(s State, exported bool) *Record {
		rec, err := j.Create(Direction{From: types.ChainX, To: types.ChainP}, types.AVAX)
		require.NoError(t, err)
		rec.State = s
		if exported {
			rec.ExportTxID = types.HashID([]byte(rec.ID))
		}
		require.NoError(t, j.Update(rec))
		return rec
	}

	complete := mk(StateComplete, true)
	failedExport := mk(StateFailed, false)
	failedImport := mk(StateFailed, true)
	waiting := mk(StateAwaitingConfirmation, true)
	exporting := mk(StateExporting, false)

	all, err := j.List()
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, complete.ID, all[0].ID, "oldest first")

	pending, err := j.Pending()
	require.NoError(t, err)
	var ids []string
	for _, r := range pending {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{failedImport.ID, waiting.ID, exporting.ID}, ids)
	require.NotContains(t, ids, failedExport.ID)
}

func TestJournal_Prune(t *testing.T) {
	for name, db := range journalBackends(t) {
		t.Run(name, func(t *testing.T) {
			j := NewJournal(db)
			old := time.Unix(1_600_000_000, 0)
			j.now = func() time.Time { return old }

			done, err := j.Create(Direction{From: types.ChainP, To: types.ChainC}, types.AVAX)
			require.NoError(t, err)
			done.State = StateComplete
			require.NoError(t, j.Update(done))

			stuck, err := j.Create(Direction{From: types.ChainP, To: types.ChainC}, types.AVAX)
			require.NoError(t, err)
			stuck.State = StateFailed
			stuck.ExportTxID = types.HashID([]byte("stuck"))
			require.NoError(t, j.Update(stuck))

			crashed, err := j.Create(Direction{From: types.ChainC, To: types.ChainX}, types.AVAX)
			require.NoError(t, err)
			crashed.State = StateExporting
			require.NoError(t, j.Update(crashed))

			n, err := j.Prune(old)
			require.NoError(t, err)
			require.Zero(t, n, "cutoff is exclusive")

			n, err = j.Prune(old.Add(time.Hour))
			require.NoError(t, err)
			require.Equal(t, 2, n)

			_, err = j.Get(done.ID)
			require.True(t, errors.Is(err, ErrTransferNotFound))
			_, err = j.Get(crashed.ID)
			require.True(t, errors.Is(err, ErrTransferNotFound), "stale record without an export")
			_, err = j.Get(stuck.ID)
			require.NoError(t, err, "funds in transit are kept")

			pending, err := j.Pending()
			require.NoError(t, err)
			require.Len(t, pending, 1)
			require.Equal(t, stuck.ID, pending[0].ID)
		})
	}
}

func TestJournal_IsolatedPrefix(t *testing.T) {
	db := storage.NewMemory()
	require.NoError(t, db.Put([]byte("other"), []byte("x")))

	j := NewJournal(db)
	_, err := j.Create(Direction{From: types.ChainC, To: types.ChainP}, types.AVAX)
	require.NoError(t, err)

	all, err := j.List()
	require.NoError(t, err)
	require.Len(t, all, 1)

	n := 0
	require.NoError(t, db.ForEach([]byte("t/"), func(_, _ []byte) error { n++; return nil }))
	require.Equal(t, 1, n)
}

func TestJournal_UniqueIDs(t *testing.T) {
	j := NewJournal(storage.NewMemory())
	fixed := time.Unix(1_700_000_000, 0)
	j.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for range 20 {
		rec, err := j.Create(Direction{From: types.ChainC, To: types.ChainX}, types.AVAX)
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestRecord_JSON(t *testing.T) {
	db := storage.NewMemory()
	j := NewJournal(db)
	rec, err := j.Create(Direction{From: types.ChainX, To: types.ChainC}, 5)
	require.NoError(t, err)
	rec.ExportTxID = types.HashID([]byte("e"))
	rec.State = StateImporting
	require.NoError(t, j.Update(rec))

	data, err := db.Get(append([]byte("t/"), rec.ID...))
	require.NoError(t, err)
	require.Contains(t, string(data), `"direction":"X->C"`)
	require.Contains(t, string(data), `"state":"importing"`)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, rec.Direction, back.Direction)
	require.Equal(t, rec.ExportTxID, back.ExportTxID)

	require.Error(t, json.Unmarshal([]byte(`{"direction":"C->C"}`), &back))
}
