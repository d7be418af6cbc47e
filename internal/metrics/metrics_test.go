package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveWrite("register", ResultSuccess, 3*time.Second)
	r.ObserveWrite("register", ResultRejected, 0)
	r.ObserveWrite("set_record", ResultReverted, time.Second)
	r.ObserveRefresh(7, nil)
	r.ObserveRefresh(0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.writes.WithLabelValues("register", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.writes.WithLabelValues("register", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues(ResultError)))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.entries))
	assert.Equal(t, 2, testutil.CollectAndCount(r.confirm))

	expected := `
# HELP catctl_listing_refreshes_total Listing refreshes by result.
# TYPE catctl_listing_refreshes_total counter
catctl_listing_refreshes_total{result="error"} 1
catctl_listing_refreshes_total{result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "catctl_listing_refreshes_total"))
}

func TestRecorderDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)
	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveWrite("register", ResultSuccess, time.Second)
		r.ObserveRefresh(1, nil)
	})
}
