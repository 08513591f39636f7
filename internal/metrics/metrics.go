// Package metrics собирает метрики отдачи файлов в Prometheus.
//
// Компоненты принимают Recorder; без реестра используется NewNoop.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder принимает события отдачи файлов.
type Recorder interface {
	// ObserveResponse учитывает завершённый ответ.
	ObserveResponse(method string, status int, duration time.Duration)
	// AddStreamedBytes учитывает байты тела, записанные клиенту.
	AddStreamedBytes(n int64)
	// StreamAborted учитывает тело, оборванное после отправки заголовков.
	StreamAborted()
}

type noop struct{}

// NewNoop возвращает Recorder, который ничего не делает.
func NewNoop() Recorder { return noop{} }

func (noop) ObserveResponse(string, int, time.Duration) {}
func (noop) AddStreamedBytes(int64)                     {}
func (noop) StreamAborted()                             {}

type promRecorder struct {
	responses      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	bytesStreamed  prometheus.Counter
	streamsAborted prometheus.Counter
}

// NewPrometheus регистрирует коллекторы в reg.
func NewPrometheus(reg prometheus.Registerer) Recorder {
	return &promRecorder{
		responses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devfiles_responses_total",
				Help: "Total number of file responses by method and status",
			},
			[]string{"method", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "devfiles_response_duration_milliseconds",
				Help: "Duration of file responses in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"method"},
		),
		bytesStreamed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "devfiles_bytes_streamed_total",
			Help: "Total body bytes written to clients",
		}),
		streamsAborted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "devfiles_streams_aborted_total",
			Help: "Response bodies aborted after headers were sent",
		}),
	}
}

func (m *promRecorder) ObserveResponse(method string, status int, duration time.Duration) {
	m.responses.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(float64(duration.Milliseconds()))
}

func (m *promRecorder) AddStreamedBytes(n int64) {
	if n > 0 {
		m.bytesStreamed.Add(float64(n))
	}
}

func (m *promRecorder) StreamAborted() {
	m.streamsAborted.Inc()
}

// Handler отдаёт метрики реестра в формате Prometheus.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
