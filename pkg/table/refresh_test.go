// Unit tests for the refresher: sync and async refresh, error routing and
// the generation guard against stale results.
package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

var errBackend = errors.New("backend down")

func TestRefreshSync(t *testing.T) {
	rows := []*person{p(1, "a"), p(2, "b")}
	m := newModel(t, func(o *Options[*person, string]) {
		o.Supplier = func(context.Context) ([]*person, error) { return rows, nil }
	})
	var completed []*person
	var states []bool
	m.Refresher().Refreshing().Subscribe(func(b bool) { states = append(states, b) })

	require.NoError(t, m.Refresher().Refresh(context.Background(), func(r []*person) { completed = r }))

	assert.Equal(t, rows, m.Items().Visible())
	assert.Equal(t, rows, completed)
	assert.Equal(t, []bool{true, false}, states)
	assert.False(t, m.Refresher().Refreshing().Get())
}

func TestRefreshWithoutSupplierReappliesRows(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.Items().Add(p(2, "b"), p(1, "a")))
	require.NoError(t, m.Sort().Set("id", types.Ascending))
	m.Items().SetPredicate(func(r *person) bool { return r.ID == 1 })

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, []int{1}, ids(m.Items().Visible()))
	assert.Equal(t, 2, m.Items().Count())
}

func TestRefreshFailureSync(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Supplier = func(context.Context) ([]*person, error) { return nil, errBackend }
	})
	require.NoError(t, m.Items().Add(p(1, "a")))
	var failed []error
	m.Refresher().Failed().Subscribe(func(err error) { failed = append(failed, err) })

	err := m.Refresh(context.Background())
	require.ErrorIs(t, err, types.ErrRefreshFailure)
	assert.ErrorIs(t, err, errBackend)
	assert.Len(t, failed, 1)
	assert.Equal(t, 1, m.Items().Count(), "a failed refresh leaves the rows alone")
	assert.False(t, m.Refresher().Refreshing().Get())
}

func TestRefreshFailureRoutedToHandler(t *testing.T) {
	var handled error
	m := newModel(t, func(o *Options[*person, string]) {
		o.Supplier = func(context.Context) ([]*person, error) { panic("boom") }
		o.OnRefreshError = func(err error) { handled = err }
	})

	require.NoError(t, m.Refresh(context.Background()))
	require.ErrorIs(t, handled, types.ErrRefreshFailure)
	assert.Contains(t, handled.Error(), "boom")
}

func TestRefreshInvalidRows(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Supplier = func(context.Context) ([]*person, error) { return []*person{nil}, nil }
	})
	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, types.ErrRefreshFailure)
	assert.ErrorIs(t, err, types.ErrInvalidRow)
}

func TestRefreshAsyncDispatchesResult(t *testing.T) {
	owner := make(chan func(), 1)
	m := newModel(t, func(o *Options[*person, string]) {
		o.AsyncRefresh = true
		o.Supplier = func(context.Context) ([]*person, error) { return []*person{p(1, "a")}, nil }
		o.Dispatch = func(fn func()) { owner <- fn }
		o.Logger = zap.NewNop()
	})
	done := make(chan []*person, 1)

	require.NoError(t, m.Refresher().Refresh(context.Background(), func(r []*person) { done <- r }))
	assert.True(t, m.Refresher().Async())

	select {
	case fn := <-owner:
		assert.Zero(t, m.Items().Count(), "nothing is applied before the owner runs the result")
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("refresh result was never dispatched")
	}
	assert.Len(t, <-done, 1)
	assert.Equal(t, 1, m.Items().Count())
}

func TestRefreshDiscardsStaleResult(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	release := make(chan struct{})
	m := newModel(t, func(o *Options[*person, string]) {
		o.Logger = zap.New(core)
		o.Supplier = func(context.Context) ([]*person, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(started)
				<-release
				return []*person{p(1, "stale")}, nil
			}
			return []*person{p(2, "fresh")}, nil
		}
	})
	applied := 0
	m.Refresher().Refreshed().Subscribe(func([]*person) { applied++ })

	m.Refresher().SetAsync(true)
	require.NoError(t, m.Refresher().Refresh(context.Background(), nil))
	<-started
	m.Refresher().SetAsync(false)
	require.NoError(t, m.Refresher().Refresh(context.Background(), nil))
	require.Equal(t, []string{"fresh"}, names(m.Items().Visible()))

	close(release)
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("discarding stale refresh result").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"fresh"}, names(m.Items().Visible()))
	assert.Equal(t, 1, applied, "the stale result is never applied")
}

func TestRefreshGenerationCheckedUnderLock(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.Items().Add(p(1, "current")))
	rec := record(m)

	locked := false
	applied, err := m.Items().setIf(func() bool {
		if m.mu.TryLock() {
			m.mu.Unlock()
		} else {
			locked = true
		}
		return false
	}, []*person{p(2, "stale")})

	require.NoError(t, err)
	assert.False(t, applied)
	assert.True(t, locked, "the guard runs while the model lock is held")
	assert.Equal(t, []string{"current"}, names(m.Items().Visible()))
	assert.Empty(t, rec.events)
}
