package failure

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailure_Message(t *testing.T) {
	f := New("${type}#${member}: conflicting ${conflictingFacets}", Vars{
		"type":              "demo.Order",
		"member":            "Total",
		"conflictingFacets": "mandatory, hidden",
	})

	assert.Equal(t, "demo.Order#Total: conflicting mandatory, hidden", f.Message())
	assert.Equal(t, f.Message(), f.Error())
}

func TestFailure_UnknownPlaceholderKept(t *testing.T) {
	f := New("${type} is ${what}", Vars{"type": "X"})
	assert.Equal(t, "X is ${what}", f.Message())
}

func TestCollector_CollectsEverything(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasFailures())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add("boom", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, c.Len())
	assert.True(t, c.HasFailures())
}

func TestBuildError(t *testing.T) {
	c := NewCollector()
	c.Add("first ${n}", Vars{"n": "1"})
	c.Add("second ${n}", Vars{"n": "2"})

	err := NewBuildError(uuid.New(), c)
	require.Len(t, err.Failures, 2)
	assert.True(t, strings.Contains(err.Error(), "2 errors"))
	assert.Equal(t, []string{"first 1", "second 2"}, err.Lines())

	var f Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "first 1", f.Message())
}

func TestBuildError_Single(t *testing.T) {
	c := NewCollector()
	c.Add("only", nil)

	err := NewBuildError(uuid.Nil, c)
	assert.Equal(t, "metamodel validation failed: only", err.Error())
}
