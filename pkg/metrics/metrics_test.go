package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
)

func exposition(families int) string {
	var b strings.Builder
	for i := 0; i < families; i++ {
		fmt.Fprintf(&b, "# HELP mongodb_metric_%d A metric.\n# TYPE mongodb_metric_%d gauge\nmongodb_metric_%d 1\n", i, i, i)
	}
	b.WriteString("# TYPE go_goroutines gauge\ngo_goroutines 12\n")
	return b.String()
}

// exporter serves body on /metrics behind basic auth and returns the unit pointing at it.
func exporter(t *testing.T, name, body string) (orchestrator.Unit, int) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || user != "prometheus" || password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/metrics" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return orchestrator.Unit{Name: name, Address: host, Active: true}, p
}

func newChecker(port int, password string) Checker {
	return NewChecker(Options{
		Port:           port,
		Path:           "metrics",
		Substring:      "mongo",
		MinOccurrences: 10,
		Username:       "prometheus",
		Password:       password,
		Timeout:        time.Second,
	}, zap.NewNop().Sugar())
}

func TestCheck(t *testing.T) {
	unit, port := exporter(t, "mongodb-k8s-0", exposition(5))

	report, err := newChecker(port, "secret").Check(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.Equal(t, 15, report.Occurrences)
	assert.Len(t, report.Families, 5)
	assert.Equal(t, "mongodb_metric_0", report.Families[0])
	assert.NotContains(t, report.Families, "go_goroutines")
}

func TestCheck_TooFewOccurrences(t *testing.T) {
	unit, port := exporter(t, "mongodb-k8s-0", exposition(3))

	report, err := newChecker(port, "secret").Check(context.Background(), unit)
	require.Error(t, err)
	assert.Equal(t, 9, report.Occurrences)
	assert.Contains(t, err.Error(), "expected more than 10")
}

func TestCheck_Unauthorized(t *testing.T) {
	unit, port := exporter(t, "mongodb-k8s-0", exposition(5))

	report, err := newChecker(port, "wrong").Check(context.Background(), unit)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, report.StatusCode)
}

func TestCheck_UnparsableBodyStillCounts(t *testing.T) {
	unit, port := exporter(t, "mongodb-k8s-0", strings.Repeat("mongo is not a metric line\n", 11))

	report, err := newChecker(port, "secret").Check(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, 11, report.Occurrences)
	assert.Empty(t, report.Families)
}

func TestCheck_NoAddress(t *testing.T) {
	_, err := newChecker(9216, "secret").Check(context.Background(), orchestrator.Unit{Name: "mongodb-k8s-0"})
	assert.Error(t, err)
}

func TestCheckAll(t *testing.T) {
	good, port := exporter(t, "mongodb-k8s-0", exposition(5))
	bad := orchestrator.Unit{Name: "mongodb-k8s-1"}

	reports, err := newChecker(port, "secret").CheckAll(context.Background(), []orchestrator.Unit{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodb-k8s-1")
	require.Len(t, reports, 2)
	assert.Equal(t, http.StatusOK, reports[0].StatusCode)

	reports, err = newChecker(port, "secret").CheckAll(context.Background(), []orchestrator.Unit{good})
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	_, err = newChecker(port, "secret").CheckAll(context.Background(), nil)
	assert.Error(t, err)
}
