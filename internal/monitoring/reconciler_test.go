package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepairer struct {
	calls  atomic.Int32
	report store.RepairReport
	err    error
}

func (f *fakeRepairer) RepairOrphanedComments(context.Context) (store.RepairReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func TestNewReconcilerRejectsBadSpec(t *testing.T) {
	_, err := NewReconciler(&fakeRepairer{}, "not a cron spec")
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	f := &fakeRepairer{report: store.RepairReport{Linked: 2, Deleted: 1}}
	r, err := NewReconciler(f, "@every 1h")
	require.NoError(t, err)

	report, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.RepairReport{Linked: 2, Deleted: 1}, report)
	assert.EqualValues(t, 1, f.calls.Load())

	f.err = errors.New("store down")
	_, err = r.RunOnce(context.Background())
	assert.EqualError(t, err, "store down")
}

func TestScheduledRuns(t *testing.T) {
	f := &fakeRepairer{}
	r, err := NewReconciler(f, "@every 1s")
	require.NoError(t, err)

	r.Start()
	assert.Eventually(t, func() bool { return f.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	r.Stop()
}
