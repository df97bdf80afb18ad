package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAnalysis(t *testing.T) {
	runs := testutil.ToFloat64(analysisRuns.WithLabelValues("accurate", "true"))
	voxels := testutil.ToFloat64(analysisVoxels)

	RecordAnalysis(true, true, 12, 3, 5*time.Millisecond)

	assert.Equal(t, runs+1, testutil.ToFloat64(analysisRuns.WithLabelValues("accurate", "true")))
	assert.Equal(t, voxels+12, testutil.ToFloat64(analysisVoxels))
}

func TestWriteTextfile(t *testing.T) {
	RecordIsocontour(27)

	path := filepath.Join(t.TempDir(), "amideroi.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "amideroi_isocontour_voxels")
}
