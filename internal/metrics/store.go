package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	saveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resume_builder",
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "简历保存次数，按结果划分。",
		},
		[]string{"outcome"},
	)

	saveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resume_builder",
			Subsystem: "store",
			Name:      "save_duration_seconds",
			Help:      "简历保存耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	fallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resume_builder",
			Subsystem: "store",
			Name:      "create_fallbacks_total",
			Help:      "更新失败后回退为创建的次数。",
		},
		[]string{"policy"},
	)

	createJoinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resume_builder",
			Subsystem: "store",
			Name:      "create_joined_total",
			Help:      "并发创建请求被合并到进行中创建的次数。",
		},
	)

	listLoadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resume_builder",
			Subsystem: "listcache",
			Name:      "loads_total",
			Help:      "列表全量刷新次数。",
		},
		[]string{"result"},
	)
)

// StoreRecorder 将简历存储的事件写入 Prometheus。
type StoreRecorder struct{}

func (StoreRecorder) SaveObserved(outcome string, d time.Duration) {
	saveTotal.WithLabelValues(outcome).Inc()
	saveDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (StoreRecorder) FallbackTriggered(policy string) {
	fallbackTotal.WithLabelValues(policy).Inc()
}

func (StoreRecorder) CreateJoined() {
	createJoinedTotal.Inc()
}

// ListLoaded records a dashboard list refresh.
func ListLoaded(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	listLoadTotal.WithLabelValues(result).Inc()
}
