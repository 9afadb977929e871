package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	require.NoError(t, err)

	p.Observe("success", 3, 200*time.Millisecond)
	p.Observe("success", 2, time.Second)
	p.Observe("wrong_file_type", 0, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(p.events.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.events.WithLabelValues("wrong_file_type")))
	assert.Equal(t, float64(5), testutil.ToFloat64(p.pages))
	assert.Equal(t, 2, testutil.CollectAndCount(p.duration))
}

func TestPipeline_Failures(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	require.NoError(t, err)

	p.ArchiveFailed()
	p.ReportFailed()
	p.ReportFailed()

	assert.Equal(t, float64(1), testutil.ToFloat64(p.archiveFailures))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.reportFailures))
}

func TestNewPipeline_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPipeline(reg)
	require.NoError(t, err)

	_, err = NewPipeline(reg)
	assert.Error(t, err)
}
