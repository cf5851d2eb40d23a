package seen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for tests
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.data[key], nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestTracker_FirstRun(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tracker := NewTracker(store)

	keys := []string{"a.b", "c.d", "e.f"}
	tracker.Initialize(ctx, keys)

	for _, k := range keys {
		assert.False(t, tracker.IsNew(k), "first-time user never sees %s as new", k)
	}
	assert.Equal(t, 0, tracker.NewCount(keys))

	// state persisted for the next session
	raw := store.data[stateKey]
	require.NotEmpty(t, raw)
	var st State
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	assert.Equal(t, stateVersion, st.Version)
	assert.Len(t, st.SeenSettings, 3)
}

func TestTracker_DetectNew(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	tracker := NewTracker(store)
	tracker.Initialize(ctx, []string{"a.b"})

	t.Run("new key detected after key set changes", func(t *testing.T) {
		fresh := tracker.DetectNew(ctx, []string{"a.b", "x.y"})
		assert.Equal(t, []string{"x.y"}, fresh)
		assert.True(t, tracker.IsNew("x.y"))
		assert.False(t, tracker.IsNew("a.b"))
	})

	t.Run("unchanged hash short-circuits", func(t *testing.T) {
		fresh := tracker.DetectNew(ctx, []string{"a.b", "x.y"})
		assert.Empty(t, fresh, "second call with same key set returns nothing")
	})

	t.Run("marking seen is monotonic", func(t *testing.T) {
		tracker.MarkSeen(ctx, []string{"x.y"})
		assert.False(t, tracker.IsNew("x.y"))

		// key set changes again, x.y stays seen
		fresh := tracker.DetectNew(ctx, []string{"a.b", "x.y", "z.z"})
		assert.Equal(t, []string{"z.z"}, fresh)
		assert.False(t, tracker.IsNew("x.y"))
	})
}

func TestTracker_StateReload(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	first := NewTracker(store)
	first.Initialize(ctx, []string{"a.b"})
	first.MarkSeen(ctx, []string{"later.key"})

	// a new tracker over the same store picks up persisted state
	second := NewTracker(store)
	second.Initialize(ctx, []string{"a.b", "brand.new"})

	assert.False(t, second.IsNew("a.b"))
	assert.False(t, second.IsNew("later.key"))
	assert.True(t, second.IsNew("brand.new"), "not first run, so a new key stays new")
}

func TestTracker_CorruptState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "!!garbage!!"},
		{"wrong shape", `{"seenSettings": "should-be-map"}`},
		{"wrong version", `{"version": 99, "seenSettings": {}}`},
		{"null map", `{"version": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.data[stateKey] = tt.raw

			tracker := NewTracker(store)
			require.NotPanics(t, func() {
				tracker.Initialize(ctx, []string{"a.b", "c.d"})
			})

			// corrupt state means first-run behavior, nothing new
			count := tracker.NewCount([]string{"a.b", "c.d"})
			assert.GreaterOrEqual(t, count, 0)
			assert.Equal(t, 0, count)
		})
	}
}

func TestTracker_PersistenceFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure degrades to nothing new", func(t *testing.T) {
		store := newMemStore()
		store.getErr = fmt.Errorf("disk gone")

		tracker := NewTracker(store)
		tracker.Initialize(ctx, []string{"a.b"})
		assert.False(t, tracker.IsNew("a.b"))
	})

	t.Run("write failure never throws", func(t *testing.T) {
		store := newMemStore()
		store.setErr = fmt.Errorf("disk full")

		tracker := NewTracker(store)
		require.NotPanics(t, func() {
			tracker.Initialize(ctx, []string{"a.b"})
			tracker.MarkSeen(ctx, []string{"a.b"})
		})
	})
}

func TestTracker_Clear(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	tracker := NewTracker(store)
	tracker.Initialize(ctx, []string{"a.b"})
	tracker.MarkSeen(ctx, []string{"x.y"})

	tracker.Clear(ctx)
	assert.Empty(t, store.data[stateKey])
	assert.True(t, tracker.IsNew("x.y"))
}

func TestHashKeys(t *testing.T) {
	a := hashKeys([]string{"b", "a", "c"})
	b := hashKeys([]string{"c", "b", "a"})
	assert.Equal(t, a, b, "order independent")
	assert.NotEqual(t, a, hashKeys([]string{"a", "b"}))
	assert.Empty(t, hashKeys(nil))
}

func TestTracker_MarkSeenTimestamps(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	tracker := NewTracker(store)
	tracker.Initialize(ctx, nil)

	before := time.Now().Add(-time.Second)
	tracker.MarkSeen(ctx, []string{"k"})

	var st State
	require.NoError(t, json.Unmarshal([]byte(store.data[stateKey]), &st))
	ts, ok := st.SeenSettings["k"]
	require.True(t, ok)
	assert.True(t, ts.After(before))
}
