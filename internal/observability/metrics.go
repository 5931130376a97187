package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvctl",
			Subsystem: "transport",
			Name:      "packets_sent_total",
			Help:      "TLV packets written, by channel.",
		},
		[]string{"channel"},
	)
	packetsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvctl",
			Subsystem: "transport",
			Name:      "packets_received_total",
			Help:      "TLV packets decoded, by channel.",
		},
		[]string{"channel"},
	)
	tunnelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvctl",
			Subsystem: "tunnel",
			Name:      "requests_total",
			Help:      "Tunnel GET/POST exchanges served.",
		},
		[]string{"path", "method"},
	)
	tunnelBody = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlvctl",
			Subsystem: "tunnel",
			Name:      "body_bytes",
			Help:      "Tunnel exchange body size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"path", "method"},
	)
	tunnelEgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tlvctl",
			Subsystem: "tunnel",
			Name:      "egress_bytes",
			Help:      "Bytes queued in a tunnel egress mailbox.",
		},
		[]string{"path"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlvctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlvctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			packetsSent, packetsReceived,
			tunnelRequests, tunnelBody, tunnelEgress,
			httpRequests, httpDuration,
		)
	})
}

func RecordPacketSent(channel string) {
	RegisterMetrics()
	packetsSent.WithLabelValues(channel).Inc()
}

func RecordPacketReceived(channel string) {
	RegisterMetrics()
	packetsReceived.WithLabelValues(channel).Inc()
}

func RecordTunnelRequest(path, method string, bodyBytes int) {
	RegisterMetrics()
	tunnelRequests.WithLabelValues(path, method).Inc()
	tunnelBody.WithLabelValues(path, method).Observe(float64(bodyBytes))
}

func SetTunnelEgressBytes(path string, pending int) {
	RegisterMetrics()
	tunnelEgress.WithLabelValues(path).Set(float64(pending))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
