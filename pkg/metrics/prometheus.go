package metrics

import (
	"fmt"
	"net/http"
	"strings"
)

// PrometheusHandler handles Prometheus metrics HTTP requests. It is
// mounted directly onto pkg/web's status server rather than running
// its own listener, since the status surface owns exactly one port.
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler.
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{collector: collector}
}

// ServeHTTP handles HTTP requests for metrics.
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	output.WriteString("# HELP p25gw_ingress_frames_received_total Total ingress frames decoded\n")
	output.WriteString("# TYPE p25gw_ingress_frames_received_total counter\n")
	output.WriteString(fmt.Sprintf("p25gw_ingress_frames_received_total %d\n", h.collector.GetIngressReceived()))

	output.WriteString("# HELP p25gw_ingress_frames_invalid_total Total malformed ingress datagrams dropped\n")
	output.WriteString("# TYPE p25gw_ingress_frames_invalid_total counter\n")
	output.WriteString(fmt.Sprintf("p25gw_ingress_frames_invalid_total %d\n", h.collector.GetIngressInvalid()))

	output.WriteString("# HELP p25gw_calls_total Total calls started\n")
	output.WriteString("# TYPE p25gw_calls_total counter\n")
	output.WriteString(fmt.Sprintf("p25gw_calls_total %d\n", h.collector.GetCallsTotal()))

	output.WriteString("# HELP p25gw_call_active Whether a call is currently active\n")
	output.WriteString("# TYPE p25gw_call_active gauge\n")
	output.WriteString(fmt.Sprintf("p25gw_call_active %d\n", boolToInt(h.collector.GetCallActive())))

	output.WriteString("# HELP p25gw_ldu1_sent_total Total LDU1 superframes relayed upstream\n")
	output.WriteString("# TYPE p25gw_ldu1_sent_total counter\n")
	output.WriteString(fmt.Sprintf("p25gw_ldu1_sent_total %d\n", h.collector.GetLDU1Total()))

	output.WriteString("# HELP p25gw_ldu2_sent_total Total LDU2 superframes relayed upstream\n")
	output.WriteString("# TYPE p25gw_ldu2_sent_total counter\n")
	output.WriteString(fmt.Sprintf("p25gw_ldu2_sent_total %d\n", h.collector.GetLDU2Total()))

	output.WriteString("# HELP p25gw_fne_connected Whether the FNE session is currently connected\n")
	output.WriteString("# TYPE p25gw_fne_connected gauge\n")
	output.WriteString(fmt.Sprintf("p25gw_fne_connected %d\n", boolToInt(h.collector.GetFNEConnected())))

	output.WriteString("# HELP p25gw_fne_reconnects_total Total successful FNE reconnections\n")
	output.WriteString("# TYPE p25gw_fne_reconnects_total counter\n")
	output.WriteString(fmt.Sprintf("p25gw_fne_reconnects_total %d\n", h.collector.GetFNEReconnectsTotal()))

	w.Write([]byte(output.String()))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
