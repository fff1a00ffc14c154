package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	name   string
	closed bool
	err    error
	frames []map[string]any
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{name: name}
}

func (f *fakeConn) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var frame map[string]any
	if err := json.Unmarshal(b, &frame); err != nil {
		return err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) received() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.frames...)
}

func TestRegistry_SubscribeAndLookup(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("a")

	_, ok := r.Lookup("B1234XYZ")
	assert.False(t, ok)

	r.Subscribe("B1234XYZ", conn)

	got, ok := r.Lookup("B1234XYZ")
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LaterSubscribeReplaces(t *testing.T) {
	r := NewRegistry()
	first := newFakeConn("first")
	second := newFakeConn("second")

	r.Subscribe("B1234XYZ", first)
	r.Subscribe("B1234XYZ", second)

	got, ok := r.Lookup("B1234XYZ")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())

	// closing the replaced connection must not tear down the new mapping
	r.UnsubscribeByConnection(first)
	got, ok = r.Lookup("B1234XYZ")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_UnsubscribeRemovesAllIDsOfConnection(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("multi")
	other := newFakeConn("other")

	r.Subscribe("A", conn)
	r.Subscribe("B", conn)
	r.Subscribe("C", other)

	r.UnsubscribeByConnection(conn)

	_, ok := r.Lookup("A")
	assert.False(t, ok)
	_, ok = r.Lookup("B")
	assert.False(t, ok)
	_, ok = r.Lookup("C")
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("a")

	// never subscribed
	r.UnsubscribeByConnection(conn)

	r.Subscribe("A", conn)
	r.UnsubscribeByConnection(conn)
	r.UnsubscribeByConnection(conn)

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.byConn)
}

func TestRegistry_ResubscribeSameConnection(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("a")

	r.Subscribe("A", conn)
	r.Subscribe("A", conn)
	r.UnsubscribeByConnection(conn)

	_, ok := r.Lookup("A")
	assert.False(t, ok)
	assert.Empty(t, r.byConn)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newFakeConn(fmt.Sprint(i))
			id := fmt.Sprintf("dev-%d", i%10)
			r.Subscribe(id, conn)
			r.Lookup(id)
			r.UnsubscribeByConnection(conn)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
