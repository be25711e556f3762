package obs

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceName labels the build gauge and is reported by /endpoints.
const ServiceName = "securestack-api"

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "securestack_build_info",
			Help: "Build information of the running auth service.",
		},
		[]string{"service", "version", "commit", "go_version"},
	)
)

// InitBuildInfo registers the build gauge once and marks the running build with 1.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(ServiceName, version, commit, runtime.Version()).Set(1)
}
