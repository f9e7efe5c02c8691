package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/re-tools/re-healthcheck/pkg/metrics"

	. "github.com/onsi/gomega"
)

func TestMetrics_ObserveCheck(t *testing.T) {
	g := NewWithT(t)

	m := metrics.New()
	m.ObserveCheck("nodes", "SUCCEEDED", 10*time.Millisecond)
	m.ObserveCheck("nodes", "SUCCEEDED", 20*time.Millisecond)
	m.ObserveCheck("nodes", "FAILED", 5*time.Millisecond)

	count, err := testutil.GatherAndCount(m.Registry(), "rehc_checks_total")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(count).To(Equal(2))
}

func TestMetrics_ObserveAPIAndRemote(t *testing.T) {
	g := NewWithT(t)

	m := metrics.New()
	m.ObserveAPIRequest("nodes", 200)
	m.ObserveAPIRequest("bdbs", 0)
	m.ObserveRemoteCommand("node1", time.Millisecond, nil)
	m.ObserveRemoteCommand("node1", time.Millisecond, errors.New("exit 1"))

	count, err := testutil.GatherAndCount(m.Registry(), "rehc_api_requests_total", "rehc_remote_commands_total")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(count).To(Equal(4))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	g := NewWithT(t)

	var m *metrics.Metrics

	g.Expect(func() {
		m.ObserveCheck("nodes", "FAILED", time.Second)
		m.ObserveAPIRequest("nodes", 500)
		m.ObserveRemoteCommand("node1", time.Second, nil)
	}).ToNot(Panic())
	g.Expect(m.WriteToTextfile("/nonexistent/file.prom")).To(Succeed())
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	g := NewWithT(t)

	m := metrics.New()
	m.ObserveCheck("cluster", "SUCCEEDED", time.Millisecond)

	path := filepath.Join(t.TempDir(), "rehc.prom")
	g.Expect(m.WriteToTextfile(path)).To(Succeed())

	data, err := os.ReadFile(path)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(ContainSubstring(`rehc_checks_total{suite="cluster",verdict="SUCCEEDED"} 1`))
}
