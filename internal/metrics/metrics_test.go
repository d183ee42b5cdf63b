package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordPrediction(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordPrediction("match_result", 62.5, true)
		RecordPrediction("btts", 48.0, false)
	})
}

func TestRecordVerification(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordVerification("match_result", true)
		RecordVerification("match_result", false)
	})
}

func TestRecordTrainingRun(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		market string
		status string
	}{
		{name: "successful run", market: "match_result", status: "success"},
		{name: "skipped run", market: "btts", status: "skipped"},
		{name: "failed run", market: "over_under_2_5", status: "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordTrainingRun(tt.market, tt.status, 1.5)
			})
		})
	}
}

func TestRecordDrift(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordDrift("match_result", 6.2)
	})
}

func TestHandler(t *testing.T) {
	InitRegistry()

	assert.NotNil(t, Handler())
}
