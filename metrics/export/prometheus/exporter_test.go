package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/boardhub/tokenauth"
)

type fakeSource struct {
	snapshot tokenauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() tokenauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snapshot: tokenauth.MetricsSnapshot{
			Counters: map[tokenauth.MetricID]uint64{
				tokenauth.MetricLoginSuccess:          7,
				tokenauth.MetricReissueReplayDetected: 2,
			},
			Histograms: map[tokenauth.MetricID][]uint64{
				tokenauth.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(sampleSource())

	expected := `
# HELP tokenauth_login_success_total Successful password logins.
# TYPE tokenauth_login_success_total counter
tokenauth_login_success_total 7
# HELP tokenauth_reissue_replay_detected_total Reissues presenting a rotated or revoked refresh token.
# TYPE tokenauth_reissue_replay_detected_total counter
tokenauth_reissue_replay_detected_total 2
# HELP tokenauth_audit_dropped_total Audit events dropped under dispatcher backpressure.
# TYPE tokenauth_audit_dropped_total counter
tokenauth_audit_dropped_total 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tokenauth_login_success_total",
		"tokenauth_reissue_replay_detected_total",
		"tokenauth_audit_dropped_total",
	))
}

func TestCollectorRegistersCleanly(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(sampleSource())))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestHandlerRendersHistogram(t *testing.T) {
	srv := httptest.NewServer(NewCollectorFromSource(sampleSource()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	require.Contains(t, out, `tokenauth_validate_latency_seconds_bucket{le="0.005"} 1`)
	require.Contains(t, out, `tokenauth_validate_latency_seconds_bucket{le="+Inf"} 36`)
	require.Contains(t, out, "tokenauth_validate_latency_seconds_count 36")
}
