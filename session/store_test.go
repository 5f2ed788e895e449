package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRecord() Record {
	return Record{
		AccessToken:  "access.token.value",
		RefreshToken: "refresh-token-value",
		User:         []byte(`{"id":"u-1","email":"cashier@store.test","role":"CASHIER"}`),
	}
}

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "sg", "test", 0), mr, rdb
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	rs, _, _ := newRedisStoreTest(t)
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "state", "session.bin")),
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("empty store: expected ErrNotFound, got %v", err)
			}

			want := testRecord()
			if err := store.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || string(got.User) != string(want.User) {
				t.Fatalf("round trip mismatch: %+v", got)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("first clear: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("second clear: %v", err)
			}
			if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("after clear: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreSaveRejectsPartialRecord(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			rec := testRecord()
			rec.RefreshToken = ""
			if err := store.Save(ctx, rec); !errors.Is(err, ErrIncomplete) {
				t.Fatalf("expected ErrIncomplete, got %v", err)
			}
			if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("nothing must be written, got %v", err)
			}
		})
	}
}

func TestRedisStorePartialKeysAreCorrupt(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t)
	if err := mr.Set("sg:test:access", "only-access"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestRedisStoreSaveWritesAllKeysWithTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "", "", time.Hour)
	if err := store.Save(context.Background(), testRecord()); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, k := range []string{"sg:default:access", "sg:default:refresh", "sg:default:user"} {
		if !mr.Exists(k) {
			t.Fatalf("expected key %s", k)
		}
		if ttl := mr.TTL(k); ttl != time.Hour {
			t.Fatalf("key %s ttl = %s, want 1h", k, ttl)
		}
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired record to read as not found, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t)
	mr.Close()

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ping to report ErrUnavailable, got %v", err)
	}
}

func TestFileStoreModeAndCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	store := NewFileStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, testRecord()); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}

	if err := os.WriteFile(path, []byte("SGS\x02garbage"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestMemoryStorePutPartialIsCorrupt(t *testing.T) {
	store := NewMemoryStore()
	store.Put(Record{AccessToken: "a"})
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
