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

func TestObserveSuccess(t *testing.T) {
	r := NewRecorder()

	r.ObserveSuccess("mongodb", "testdb", "customers", 18, 250*time.Millisecond)
	r.ObserveSuccess("mongodb", "testdb", "customers", 18, 100*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.SeedRuns.WithLabelValues("mongodb", "success")))
	assert.Equal(t, 36.0, testutil.ToFloat64(r.DocumentsInserted.WithLabelValues("mongodb", "testdb", "customers")))
	assert.Greater(t, testutil.ToFloat64(r.LastSuccessTimestamp.WithLabelValues("mongodb")), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.SeedDuration))
}

func TestObserveFailure(t *testing.T) {
	r := NewRecorder()

	r.ObserveFailure("mysql", "connect", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SeedRuns.WithLabelValues("mysql", "connect_error")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.DocumentsInserted))
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()

	a.ObserveSuccess("memory", "testdb", "customers", 18, time.Millisecond)
	assert.Equal(t, 0, testutil.CollectAndCount(b.SeedRuns))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveSuccess("postgresql", "testdb", "customers", 18, time.Second)

	path := filepath.Join(t.TempDir(), "dbseed.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dbseed_documents_inserted_total{collection="customers",database="testdb",target="postgresql"} 18`)
	assert.Contains(t, string(data), `dbseed_runs_total{status="success",target="postgresql"} 1`)

	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
