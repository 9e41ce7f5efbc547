package observability

import (
	"github.com/grafana/pyroscope-go"

	"cliparr/pkg/config"
	"cliparr/pkg/logger"
)

// StartProfiling starts continuous profiling when enabled. The returned stop func is never nil.
func StartProfiling(cfg config.ProfilingConfig) (func(), error) {
	if !cfg.Enabled || cfg.ServerAddress == "" {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          logger.Default().Logrus(),
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return func() {}, err
	}
	logger.Infof("Pyroscope profiling started app=%s server=%s", cfg.AppName, cfg.ServerAddress)
	return func() { _ = profiler.Stop() }, nil
}
