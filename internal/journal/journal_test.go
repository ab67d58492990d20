package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBeginFinishRoundTrip(t *testing.T) {
	db := openTemp(t)

	id, err := db.Begin("/dev/disk2", "Acme_1.0_1600", "/tmp/os.img", 4096)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, db.Finish(id, StateCompleted, "abc123", ""))

	ops, err := db.List(10)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	op := ops[0]
	assert.Equal(t, id, op.ID)
	assert.Equal(t, "/dev/disk2", op.DevicePath)
	assert.Equal(t, "Acme_1.0_1600", op.Identity)
	assert.Equal(t, StateCompleted, op.State)
	assert.Equal(t, "abc123", op.Checksum)
	require.NotNil(t, op.FinishedAt)
	assert.True(t, !op.FinishedAt.Before(op.StartedAt))
}

func TestFailedOperationKeepsDetail(t *testing.T) {
	db := openTemp(t)

	id, err := db.Begin("/dev/disk3", "", "/tmp/os.img", 4096)
	require.NoError(t, err)
	require.NoError(t, db.Finish(id, StateFailed, "", "verification mismatch in first 1024 bytes"))

	ops, err := db.List(10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, StateFailed, ops[0].State)
	assert.Contains(t, ops[0].Detail, "verification mismatch")
	assert.Empty(t, ops[0].Identity)
}

func TestListByIdentity(t *testing.T) {
	db := openTemp(t)

	_, err := db.Begin("/dev/disk2", "idA", "/tmp/a.img", 1)
	require.NoError(t, err)
	_, err = db.Begin("/dev/disk3", "idB", "/tmp/b.img", 1)
	require.NoError(t, err)

	ops, err := db.ListByIdentity("idA", 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "/dev/disk2", ops[0].DevicePath)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := New(path)
	require.NoError(t, err)
	_, err = db.Begin("/dev/disk2", "idA", "/tmp/a.img", 1)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := New(path)
	require.NoError(t, err)
	defer db2.Close()

	ops, err := db2.List(10)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}
