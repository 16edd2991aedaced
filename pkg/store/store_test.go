package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/roomcraft/pkg/config"
	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/snapshot"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) snapshot.Snapshot {
	t.Helper()
	g := scene.New(scene.DefaultRoom())
	n := scene.NewNode("chair.glb", scene.KindFurniture, nil)
	n.Transform.Position = scene.Vec3{X: 0.1, Y: 0, Z: 0.7}
	require.NoError(t, g.AddNode(g.FurnitureGroup().ID, n))
	return snapshot.Save(g)
}

// exercise runs the behaviour every backend must share.
func exercise(t *testing.T, st Store) {
	ctx := context.Background()
	s := sample(t)

	_, err := st.Load(ctx, "roomScene")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Save(ctx, "roomScene", s))
	require.NoError(t, st.Save(ctx, "bedroom", snapshot.Snapshot{}))
	got, err := st.Load(ctx, "roomScene")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	keys, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bedroom", "roomScene"}, keys)

	require.NoError(t, st.Delete(ctx, "bedroom"))
	keys, err = st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"roomScene"}, keys)

	for _, bad := range []string{"", "../etc", `a\b`, ".."} {
		assert.ErrorIs(t, st.Save(ctx, bad, s), ErrInvalidKey, bad)
	}
}

func TestFileStore(t *testing.T) {
	st, err := NewFileStore(filepath.Join(t.TempDir(), "rooms"))
	require.NoError(t, err)
	defer st.Close()
	exercise(t, st)
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	_, err = st.Load(context.Background(), "broken")
	var fe *snapshot.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestNewSelectsBackend(t *testing.T) {
	st, err := New(config.StoreConfig{Backend: config.BackendFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)

	st, err = New(config.StoreConfig{Backend: config.BackendRedis, Redis: config.RedisConfig{Addr: "localhost:0"}})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, st)
	_ = st.Close()

	_, err = New(config.StoreConfig{Backend: "tape"})
	assert.ErrorIs(t, err, config.ErrInvalidBackend)
}

// TestRedisStore needs a server; set REDIS_ADDR to run it.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := fmt.Sprintf("roomcraft-test-%d:", time.Now().UnixNano())
	st := NewRedisStore(client, prefix)
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, st.Ping(ctx))
	t.Cleanup(func() {
		keys, _ := st.List(context.Background())
		for _, k := range keys {
			_ = st.Delete(context.Background(), k)
		}
	})
	exercise(t, st)
}
