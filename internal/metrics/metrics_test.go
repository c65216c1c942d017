package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest("orders.create", 201, 20*time.Millisecond)
	c.ObserveRequest("orders.create", 201, 30*time.Millisecond)
	c.ObserveRequest("orders.create", 0, time.Second)

	counts := map[string]float64{}
	for _, m := range family(t, reg, "storefront_api_requests_total").GetMetric() {
		l := labels(m)
		assert.Equal(t, "orders.create", l["route"])
		counts[l["status"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"201": 2, "0": 1}, counts)

	hist := family(t, reg, "storefront_api_request_duration_seconds").GetMetric()
	require.Len(t, hist, 1)
	assert.Equal(t, uint64(3), hist[0].GetHistogram().GetSampleCount())
}

func TestObserveCheckout(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveCheckout("success")
	c.ObserveCheckout("failed")
	c.ObserveCheckout("failed")

	counts := map[string]float64{}
	for _, m := range family(t, reg, "storefront_checkout_submissions_total").GetMetric() {
		counts[labels(m)["outcome"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"success": 1, "failed": 2}, counts)
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveCheckout("success")

	path := filepath.Join(t.TempDir(), "storefront.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `storefront_checkout_submissions_total{outcome="success"} 1`)
}

func TestWriteTextfile_BadPath(t *testing.T) {
	c := NewCollector(nil)
	err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
