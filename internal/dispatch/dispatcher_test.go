package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orchestra/internal/collection"
	"github.com/roach88/orchestra/internal/ir"
	"github.com/roach88/orchestra/internal/stream"
	"github.com/roach88/orchestra/internal/testutil"
)

type addAction struct{ id string }

func (addAction) ActionType() string { return "add" }

type noopAction struct{}

func (noopAction) ActionType() string { return "noop" }

func addReducer(state *collection.Collection, a Action) *collection.Collection {
	add, ok := a.(addAction)
	if !ok {
		return state
	}
	return state.Set(add.id, ir.IRObject{"id": ir.IRString(add.id)})
}

func collectKeys(o stream.Observable[*collection.Collection]) (*[][]string, stream.Subscription) {
	var got [][]string
	sub := o.Subscribe(func(c *collection.Collection) { got = append(got, c.Keys()) })
	return &got, sub
}

func TestNew_Defaults(t *testing.T) {
	d := New()
	assert.Len(t, d.ID(), 36, "default id should be a UUID")
	assert.NotNil(t, d.Scheduler())
	assert.False(t, d.Closed())
}

func TestNew_WithIDGenerator(t *testing.T) {
	gen := testutil.NewFixedIDGenerator("d-1")
	assert.Equal(t, "d-1", New(WithIDGenerator(gen)).ID())
	assert.Equal(t, testutil.DefaultDispatcherID, New(WithIDGenerator(testutil.NewFixedIDGenerator(""))).ID())
	assert.Len(t, New(WithIDGenerator(UUIDv7Generator{})).ID(), 36)
	assert.Equal(t, "fixed", New(WithID("fixed")).ID())
}

func TestReduce_EmitsInitialState(t *testing.T) {
	d := New(WithID("d"))
	got, sub := collectKeys(d.Reduce(addReducer, nil))
	defer sub.Unsubscribe()

	assert.Equal(t, [][]string{{}}, *got)
}

func TestDispatch_AppliesToReductions(t *testing.T) {
	d := New(WithID("d"))
	got, sub := collectKeys(d.Reduce(addReducer, collection.Empty()))
	defer sub.Unsubscribe()

	require.NoError(t, d.Dispatch(addAction{id: "a"}))
	require.NoError(t, d.Dispatch(addAction{id: "b"}))

	assert.Equal(t, [][]string{{}, {"a"}, {"a", "b"}}, *got)
}

// TestDispatch_UnchangedStateDoesNotEmit verifies reducers returning the
// same collection produce no emission.
func TestDispatch_UnchangedStateDoesNotEmit(t *testing.T) {
	d := New(WithID("d"))
	got, sub := collectKeys(d.Reduce(addReducer, nil))
	defer sub.Unsubscribe()

	require.NoError(t, d.Dispatch(noopAction{}))
	require.NoError(t, d.Dispatch(addAction{id: "a"}))
	require.NoError(t, d.Dispatch(addAction{id: "a"}))

	assert.Equal(t, [][]string{{}, {"a"}}, *got)
}

// TestReduce_ReplaysLog verifies a reduction registered after dispatches
// starts from the replayed state.
func TestReduce_ReplaysLog(t *testing.T) {
	d := New(WithID("d"))
	require.NoError(t, d.Dispatch(addAction{id: "a"}))
	require.NoError(t, d.Dispatch(addAction{id: "b"}))

	got, sub := collectKeys(d.Reduce(addReducer, nil))
	defer sub.Unsubscribe()

	assert.Equal(t, [][]string{{"a", "b"}}, *got)
}

func TestDispatch_StampsLog(t *testing.T) {
	d := New(WithID("d"))
	require.NoError(t, d.Dispatch(addAction{id: "a"}))
	require.NoError(t, d.Dispatch(noopAction{}))

	log := d.Log()
	require.Len(t, log, 2)
	assert.Equal(t, int64(1), log[0].Seq)
	assert.Equal(t, int64(2), log[1].Seq)
	assert.Equal(t, "noop", log[1].Action.ActionType())
}

// TestDispatch_ReentrantIsQueued verifies an action dispatched from a
// subscriber is applied after the current one, in order.
func TestDispatch_ReentrantIsQueued(t *testing.T) {
	d := New(WithID("d"))
	states := d.Reduce(addReducer, nil)

	var got [][]string
	sub := states.Subscribe(func(c *collection.Collection) {
		got = append(got, c.Keys())
		if c.Len() == 1 {
			require.NoError(t, d.Dispatch(addAction{id: "follow-up"}))
			assert.Equal(t, 1, c.Len())
		}
	})
	defer sub.Unsubscribe()

	require.NoError(t, d.Dispatch(addAction{id: "a"}))

	assert.Equal(t, [][]string{{}, {"a"}, {"a", "follow-up"}}, got)
}

func TestDispatch_NilAction(t *testing.T) {
	d := New(WithID("d"))
	err := d.Dispatch(nil)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrNilAction)
	assert.Equal(t, "d", de.DispatcherID)
}

func TestDispatch_AfterClose(t *testing.T) {
	d := New(WithID("d"))
	states := d.Reduce(addReducer, nil)
	require.NoError(t, d.Dispatch(addAction{id: "a"}))
	d.Close()

	err := d.Dispatch(addAction{id: "b"})
	assert.True(t, IsClosedError(err))
	assert.Contains(t, err.Error(), "dispatch add (dispatcher=d)")

	last, ok := stream.Current(states)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, last.Keys())
}

func TestDispatch_ConcurrentCallersAllApplied(t *testing.T) {
	d := New(WithID("d"))
	states := d.Reduce(addReducer, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, d.Dispatch(addAction{id: string(rune('A' + i))}))
		}(i)
	}
	wg.Wait()

	last, ok := stream.Current(states)
	require.True(t, ok)
	assert.Equal(t, 50, last.Len())
	assert.Len(t, d.Log(), 50)
}

func TestReduce_NilReducerPanics(t *testing.T) {
	assert.Panics(t, func() { New().Reduce(nil, nil) })
}

func TestDetach_StopsReduction(t *testing.T) {
	d := New(WithID("d"))
	kept := d.Reduce(addReducer, nil)
	calls := 0
	detached := d.Reduce(func(state *collection.Collection, a Action) *collection.Collection {
		calls++
		return addReducer(state, a)
	}, nil)
	require.Equal(t, 2, d.Reductions())

	require.NoError(t, d.Dispatch(addAction{id: "a"}))
	assert.Equal(t, 1, calls)

	assert.True(t, d.Detach(detached))
	assert.False(t, d.Detach(detached), "already detached")
	assert.Equal(t, 1, d.Reductions())

	got, sub := collectKeys(detached)
	defer sub.Unsubscribe()
	require.NoError(t, d.Dispatch(addAction{id: "b"}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, [][]string{{"a"}}, *got, "detached stream keeps its last state")

	keptKeys, keptSub := collectKeys(kept)
	defer keptSub.Unsubscribe()
	assert.Equal(t, [][]string{{"a", "b"}}, *keptKeys)
}

func TestDetach_UnknownStream(t *testing.T) {
	d := New(WithID("d"))
	d.Reduce(addReducer, nil)
	assert.False(t, d.Detach(New().Reduce(addReducer, nil)))
	assert.Equal(t, 1, d.Reductions())
}
