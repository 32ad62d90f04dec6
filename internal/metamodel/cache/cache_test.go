package cache

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

type alpha struct{}
type beta struct{}

func TestCache_LoadOrCreateIsIdempotent(t *testing.T) {
	c := New()
	typ := reflect.TypeOf(alpha{})

	first, created := c.LoadOrCreate(typ)
	require.True(t, created)
	assert.Equal(t, node.StateBare, first.State())

	second, created := c.LoadOrCreate(typ)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestCache_LoadOrCreateConcurrent(t *testing.T) {
	c := New()
	typ := reflect.TypeOf(alpha{})

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		seen    = make(map[*node.Node]struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, ok := c.LoadOrCreate(typ)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			seen[n] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, seen, 1)
}

func TestCache_NodesKeepInsertionOrder(t *testing.T) {
	c := New()
	c.LoadOrCreate(reflect.TypeOf(beta{}))
	c.LoadOrCreate(reflect.TypeOf(alpha{}))

	nodes := c.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, reflect.TypeOf(beta{}), nodes[0].Type())
	assert.Equal(t, reflect.TypeOf(alpha{}), nodes[1].Type())
}

func TestCache_LookupsBeforePublish(t *testing.T) {
	c := New()
	c.LoadOrCreate(reflect.TypeOf(alpha{}))

	_, err := c.LookupByType(reflect.TypeOf(alpha{}))
	assert.True(t, errors.Is(err, ErrNotInitialized))

	_, err = c.LookupByLogicalID("test.Alpha")
	assert.True(t, errors.Is(err, ErrNotInitialized))

	_, err = c.LogicalIDs()
	assert.True(t, errors.Is(err, ErrNotInitialized))

	_, ok := c.Peek(reflect.TypeOf(alpha{}))
	assert.True(t, ok, "peek ignores publication state")
}

func TestCache_Publish(t *testing.T) {
	c := New()
	a, _ := c.LoadOrCreate(reflect.TypeOf(alpha{}))
	a.Install(capability.LogicalTypeName{Name: "test.Alpha"}, "test")

	require.NoError(t, c.Publish(map[string]*node.Node{"test.Alpha": a}))
	assert.Equal(t, StatusPublished, c.Status())

	got, err := c.LookupByLogicalID("test.Alpha")
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = c.LookupByType(reflect.TypeOf(&alpha{}))
	require.NoError(t, err)
	assert.Same(t, a, got, "pointer types resolve to their element")

	_, err = c.LookupByLogicalID("test.Missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.LookupByType(reflect.TypeOf(beta{}))
	assert.True(t, errors.Is(err, ErrNotFound))

	ids, err := c.LogicalIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"test.Alpha"}, ids)

	err = c.Publish(nil)
	assert.True(t, errors.Is(err, ErrAlreadyPublished))
}

func TestCache_PublishCopiesIndex(t *testing.T) {
	c := New()
	a, _ := c.LoadOrCreate(reflect.TypeOf(alpha{}))
	index := map[string]*node.Node{"test.Alpha": a}
	require.NoError(t, c.Publish(index))

	delete(index, "test.Alpha")

	_, err := c.LookupByLogicalID("test.Alpha")
	assert.NoError(t, err)
}

func TestCache_Reject(t *testing.T) {
	c := New()
	c.LoadOrCreate(reflect.TypeOf(alpha{}))
	cause := errors.New("two failures")
	c.Reject(cause)

	assert.Equal(t, StatusFailed, c.Status())
	assert.Equal(t, cause, c.Failure())

	_, err := c.LookupByType(reflect.TypeOf(alpha{}))
	assert.True(t, errors.Is(err, ErrBuildFailed))
	assert.Contains(t, err.Error(), "two failures")

	_, err = c.Published()
	assert.True(t, errors.Is(err, ErrBuildFailed))

	err = c.Publish(map[string]*node.Node{})
	assert.True(t, errors.Is(err, ErrAlreadyPublished))
}

func TestCache_Clear(t *testing.T) {
	c := New()
	a, _ := c.LoadOrCreate(reflect.TypeOf(alpha{}))
	require.NoError(t, c.Publish(map[string]*node.Node{"test.Alpha": a}))

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, StatusBuilding, c.Status())
	_, err := c.LookupByLogicalID("test.Alpha")
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "building", StatusBuilding.String())
	assert.Equal(t, "published", StatusPublished.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(9).String())
}
