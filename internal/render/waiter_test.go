package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type element struct{}

func (element) Text(ctx context.Context) (string, error) { return "", nil }
func (element) Attribute(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

// querier matches after a number of calls, failing the calls listed in errs
type querier struct {
	calls     int
	matchFrom int
	errs      map[int]error
}

func (q *querier) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	q.calls++
	if err, ok := q.errs[q.calls]; ok {
		return nil, err
	}
	if q.matchFrom > 0 && q.calls >= q.matchFrom {
		return []browser.Element{element{}}, nil
	}
	return []browser.Element{}, nil
}

func TestWaitImmediateMatch(t *testing.T) {
	q := &querier{matchFrom: 1}
	w := NewWaiter(time.Second, 10*time.Millisecond)

	require.NoError(t, w.Wait(context.Background(), q, "h1"))
	assert.Equal(t, 1, q.calls)
}

func TestWaitPollsUntilMatch(t *testing.T) {
	q := &querier{matchFrom: 3, errs: map[int]error{2: errors.New("node detached")}}
	w := NewWaiter(time.Second, 5*time.Millisecond)

	require.NoError(t, w.Wait(context.Background(), q, "h1"))
	assert.Equal(t, 3, q.calls)
}

func TestWaitTimeout(t *testing.T) {
	q := &querier{}
	w := NewWaiter(30*time.Millisecond, 5*time.Millisecond)

	start := time.Now()
	err := w.Wait(context.Background(), q, "h1")

	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrRenderTimeout)
	assert.False(t, browser.IsSessionInit(err))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Greater(t, q.calls, 1)
}

func TestWaitSessionInitIsReturnedImmediately(t *testing.T) {
	initErr := browser.NewError(browser.CodeSessionInit, "no chrome", nil)
	q := &querier{errs: map[int]error{1: initErr}}
	w := NewWaiter(time.Second, 5*time.Millisecond)

	err := w.Wait(context.Background(), q, "h1")
	assert.ErrorIs(t, err, browser.ErrSessionInit)
	assert.Equal(t, 1, q.calls)
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWaiter(time.Second, 5*time.Millisecond).Wait(ctx, &querier{}, "h1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWaiterDefaults(t *testing.T) {
	w := NewWaiter(0, 0)
	assert.Equal(t, DefaultTimeout, w.Timeout())
	assert.Equal(t, DefaultPollInterval, w.poll)
}
