package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirror hubenschmidt-asr-llm-tts's internal/metrics package:
// per-stage latency histograms plus simple counters/gauges for the
// pipeline's overall health. Registered with the default Prometheus
// registry by promauto when this package is initialized; cmd/agent exposes
// them on /metrics with promhttp.
var (
	TurnsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxbridge_turns_active",
		Help: "Currently active conversation turns",
	})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbridge_turns_total",
		Help: "Total conversation turns processed",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxbridge_stage_duration_seconds",
		Help:    "Per-stage latency (asr, llm, segment, tts, playback)",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	BargeInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbridge_bargeins_total",
		Help: "Total user barge-in interrupts",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxbridge_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage"})

	SpeechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbridge_vad_speech_segments_total",
		Help: "Speech segments detected by VAD",
	})

	TTSSilenceRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxbridge_tts_silence_retries_total",
		Help: "Synthesis retries triggered by the silent-output guard",
	})
)

// StageTimer is a small helper so callers can write
// defer StageTimer("llm")() instead of hand-rolling time.Since bookkeeping.
func StageTimer(stage string) func() {
	t := prometheus.NewTimer(StageDuration.WithLabelValues(stage))
	return func() { t.ObserveDuration() }
}
