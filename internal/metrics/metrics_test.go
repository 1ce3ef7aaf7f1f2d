package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	m := New()
	m.RecordAppend("CHECKEDIN")
	m.RecordAppend("CHECKEDIN")
	m.RecordAppend("DISPOSED")
	m.RecordVerify("CLEAN", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocksTotal.WithLabelValues("CHECKEDIN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blocksTotal.WithLabelValues("DISPOSED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("CLEAN")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ledgerBlocks))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAppend("CHECKEDIN")
	m.RecordVerify("CLEAN", 1)
	assert.NoError(t, m.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordAppend("CHECKEDOUT")

	path := filepath.Join(t.TempDir(), "bchoc.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `bchoc_blocks_appended_total{state="CHECKEDOUT"} 1`)
}
