package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	certificatesRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "certificates_rendered_total",
			Help:      "已渲染并保存的证书图片总数。",
		},
	)

	fontFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "font_fallbacks_total",
			Help:      "字体加载失败并降级为内置字体的次数。",
		},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "run_duration_seconds",
			Help:      "一次批量生成的耗时分布（秒）。",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"status"},
	)
)

// Generation implements generator.Observer on top of the package collectors.
type Generation struct{}

func (Generation) CertificateRendered() { certificatesRendered.Inc() }

func (Generation) FontFallback() { fontFallbacks.Inc() }

func (Generation) RunFinished(status string, elapsed time.Duration) {
	runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}
