package backup

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/store"
)

type fakeObjectStore struct {
	uploaded map[string]int64
	deleted  []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploaded: make(map[string]int64)}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	f.uploaded[key] = size
	return nil
}

func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for k, size := range f.uploaded {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: k, Size: size})
		}
	}
	return out, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(f.uploaded, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.New(store.Config{Path: filepath.Join(dir, "engine.db"), Name: "test"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestServiceRunUploadsArchive(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.InsertConfigSnapshot("deadbeef", "{}"))

	fake := newFakeObjectStore()
	svc := NewService(db, "engine", filepath.Join(t.TempDir(), "staging"), fake, zerolog.Nop())

	require.NoError(t, svc.Run(context.Background()))
	assert.Len(t, fake.uploaded, 1)
	for key, size := range fake.uploaded {
		assert.Contains(t, key, archivePrefix)
		assert.Greater(t, size, int64(0))
	}
}

func TestRotateKeepsMinimumRegardlessOfAge(t *testing.T) {
	fake := newFakeObjectStore()
	for _, name := range []string{"a", "b", "c"} {
		fake.uploaded[archivePrefix+"2020-01-0"+name+"-000000.tar.gz"] = 10
	}
	svc := NewService(nil, "engine", t.TempDir(), fake, zerolog.Nop())

	require.NoError(t, svc.Rotate(context.Background(), 30))
	assert.Len(t, fake.uploaded, 3)
	assert.Empty(t, fake.deleted)
}

func TestRotateDeletesOlderThanRetention(t *testing.T) {
	fake := newFakeObjectStore()
	fake.uploaded[archivePrefix+"2020-01-02-000000.tar.gz"] = 10
	fake.uploaded[archivePrefix+"2020-01-03-000000.tar.gz"] = 10
	fake.uploaded[archivePrefix+"2020-01-04-000000.tar.gz"] = 10
	fake.uploaded[archivePrefix+"2099-01-01-000000.tar.gz"] = 10

	svc := NewService(nil, "engine", t.TempDir(), fake, zerolog.Nop())
	require.NoError(t, svc.Rotate(context.Background(), 30))

	assert.Contains(t, fake.uploaded, archivePrefix+"2099-01-01-000000.tar.gz")
	assert.Len(t, fake.uploaded, minArchivesToKeep)
}

func TestRotateKeepsEverythingWhenRetentionZero(t *testing.T) {
	fake := newFakeObjectStore()
	for i := 0; i < 5; i++ {
		fake.uploaded[archivePrefix+"2020-01-0"+string(rune('1'+i))+"-000000.tar.gz"] = 10
	}
	svc := NewService(nil, "engine", t.TempDir(), fake, zerolog.Nop())

	require.NoError(t, svc.Rotate(context.Background(), 0))
	assert.Len(t, fake.uploaded, 5)
}
