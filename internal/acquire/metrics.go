package acquire

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "modelcache",
		Subsystem: "download",
		Name:      "bytes_total",
		Help:      "Bytes received by chunked model downloads",
	})

	downloadChunkRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "modelcache",
		Subsystem: "download",
		Name:      "chunk_retries_total",
		Help:      "Retried chunk requests",
	})

	downloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelcache",
		Subsystem: "download",
		Name:      "total",
		Help:      "Finished downloads by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(downloadBytesTotal, downloadChunkRetries, downloadsTotal)
}
