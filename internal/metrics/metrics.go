package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	graphLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qoyllur_map",
		Name:      "graph_loads_total",
		Help:      "Graph loads by result.",
	}, []string{"result"})

	graphLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qoyllur_map",
		Name:      "graph_load_duration_seconds",
		Help:      "Time spent fetching and parsing the graph document.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	placesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qoyllur_map",
		Name:      "places_last_loaded",
		Help:      "Number of places extracted by the most recent successful load.",
	})

	clickResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qoyllur_map",
		Name:      "click_resolutions_total",
		Help:      "Map clicks by resolution status.",
	}, []string{"status"})

	relationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qoyllur_map",
		Name:      "relation_lookups_total",
		Help:      "Relation lookups by result.",
	}, []string{"result"})
)

// ObserveGraphLoad グラフ読み込みの結果と所要時間を記録
func ObserveGraphLoad(success bool, elapsed time.Duration, placeCount int) {
	graphLoadDuration.Observe(elapsed.Seconds())
	if !success {
		graphLoads.WithLabelValues("failure").Inc()
		return
	}
	graphLoads.WithLabelValues("success").Inc()
	placesLoaded.Set(float64(placeCount))
}

// ObserveClick クリック解決の結果を記録
func ObserveClick(status string) {
	clickResolutions.WithLabelValues(status).Inc()
}

// ObserveRelationLookup 関連取得の結果を記録
func ObserveRelationLookup(err error) {
	if err != nil {
		relationLookups.WithLabelValues("error").Inc()
		return
	}
	relationLookups.WithLabelValues("ok").Inc()
}

// Handler /metrics 用のハンドラ
func Handler() http.Handler {
	return promhttp.Handler()
}
