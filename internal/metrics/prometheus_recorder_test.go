package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("rendering_pages", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("rendering_pages", ResultSuccess)
	pr.IncBuildOutcome(ResultSuccess)
	pr.SetPages(3)
	pr.SetIslands(2, 2)
	pr.AddFilesRemoved(1)
	pr.AddAssetsCopied(4)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, 3.0, values["archipelago_pages"])
	assert.Equal(t, 4.0, values["archipelago_assets_copied_total"])
	assert.Equal(t, 1.0, values["archipelago_orphaned_files_removed_total"])
	assert.Equal(t, 1.0, values["archipelago_build_outcomes_total"])
	assert.Equal(t, 4.0, values["archipelago_islands"])
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("x", time.Second)
		pr.IncBuildOutcome(ResultFatal)
		pr.SetIslands(1, 1)
	})
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetPages(7)

	file := filepath.Join(t.TempDir(), "archipelago.prom")
	require.NoError(t, pr.WriteTextfile(file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "archipelago_pages 7")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.SetPages(1)
	r.IncStageResult("x", ResultWarning)
}
