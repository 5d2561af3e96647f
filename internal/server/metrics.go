package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribechat_frames_total",
		Help: "Inbound websocket frames by step.",
	}, []string{"step"})

	frameErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribechat_frame_errors_total",
		Help: "Frames rejected, by error kind.",
	}, []string{"kind"})

	snapshotsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribechat_snapshots_delivered_total",
		Help: "Answer snapshots written to peers.",
	})

	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribechat_delivery_failures_total",
		Help: "Snapshot writes that failed, peer-gone included.",
	})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scribechat_turn_duration_seconds",
		Help:    "Wall time of the END pipeline per chat turn.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	turnsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribechat_archived_turns_pruned_total",
		Help: "Archived conversation turns removed by retention.",
	})
)
