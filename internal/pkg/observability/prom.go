package observability

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

const (
	ServiceName = "seqwindow"
)

// Registry holds the build metrics. It is separate from the default registry so that
// pushes only carry build metrics.
var Registry = prometheus.NewRegistry()

var (
	BuildDuration = newHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "build", "stage_duration_seconds"),
		Help:    "Duration of each build stage in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"stage"})
	BuildRows = newGaugeVec(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "build", "rows"),
		Help: "Tick rows seen at each build stage",
	}, []string{"stage"})
	BuildSessions = newGaugeVec(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "build", "sessions"),
		Help: "Sessions kept and dropped by the length filter",
	}, []string{"status"})
	BuildExamples = newGaugeVec(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "build", "examples"),
		Help: "Windows produced by the last build, per split",
	}, []string{"split"})
	LabelPositiveRate = newGaugeVec(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(ServiceName, "build", "label_mean"),
		Help: "Mean of each label array of the last build",
	}, []string{"label"})
	BuildFailures = newCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "build", "failures_total"),
		Help: "Builds that ended in an error, by error code",
	}, []string{"code"})
)

func newHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	v := prometheus.NewHistogramVec(opts, labels)
	Registry.MustRegister(v)
	return v
}

func newGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	v := prometheus.NewGaugeVec(opts, labels)
	Registry.MustRegister(v)
	return v
}

func newCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	v := prometheus.NewCounterVec(opts, labels)
	Registry.MustRegister(v)
	return v
}

// Push sends the build metrics to a Pushgateway. An empty url is a no-op.
func Push(url, buildID string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, ServiceName).
		Gatherer(Registry).
		Grouping("build_id", buildID).
		Push()
	if err != nil {
		return errors.Wrap(err, "failed to push metrics")
	}
	log.Debug().Str("evt.name", "observability.push").Str("url", url).Msg("pushed build metrics")
	return nil
}
