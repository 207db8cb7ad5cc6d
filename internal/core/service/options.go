package service

import (
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
	"github.com/yndnr/walletlink-go/internal/telemetry/metric"
)

type options struct {
	logger  logger.Logger
	metrics *metric.Registry
}

// Option configures a service component.
type Option func(*options)

// WithLogger sets the component logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics registry. A nil registry records nothing.
func WithMetrics(r *metric.Registry) Option {
	return func(o *options) { o.metrics = r }
}

func buildOptions(component string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrDefault(o.logger).With("component", component)
	return o
}
