package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalradar_scans_total",
		Help: "Total number of strategy scans by final status",
	}, []string{"strategy", "status"})

	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalradar_scan_duration_seconds",
		Help:    "Duration of a strategy scan including dispatch",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"strategy"})

	SignalsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalradar_signals_total",
		Help: "Total number of signals emitted by the scanner",
	}, []string{"strategy", "signal_type"})

	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalradar_records_total",
		Help: "Signal history writes by outcome",
	}, []string{"strategy", "outcome"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalradar_notifications_total",
		Help: "Notifications sent by driver and status",
	}, []string{"driver", "status"})

	InstrumentsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalradar_instruments_skipped_total",
		Help: "Instruments that produced no evaluation in a scan",
	}, []string{"strategy", "reason"})

	StrategiesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalradar_strategies_loaded",
		Help: "Number of strategy definitions in the active registry snapshot",
	})
)
