package fuser

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hybridmocap/simulator/internal/fuser"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
