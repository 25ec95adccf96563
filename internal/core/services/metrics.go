package services

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/melih/lighthouse-forge/internal/logger"
)

const instrumentation = "github.com/melih/lighthouse-forge/services"

func stageHistogram() metric.Float64Histogram {
	h, err := otel.Meter(instrumentation).Float64Histogram(
		"forge.stage.duration",
		metric.WithDescription("Duration of one containerize stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warnf("stage histogram disabled: %v", err)
		return noop.Float64Histogram{}
	}
	return h
}

func outcomeCounter() metric.Int64Counter {
	c, err := otel.Meter(instrumentation).Int64Counter(
		"forge.containerize.runs",
		metric.WithDescription("Containerize runs by failed stage, empty on success"),
	)
	if err != nil {
		logger.Warnf("outcome counter disabled: %v", err)
		return noop.Int64Counter{}
	}
	return c
}
