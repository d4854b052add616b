// Package metrics exposes Prometheus collectors for the comment widget.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommentsPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kejinlab_comments_posted_total",
		Help: "Comments inserted, by kind (root or reply).",
	}, []string{"kind"})

	CommentsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kejinlab_comments_deleted_total",
		Help: "Comments deleted, by mode (hard or soft).",
	}, []string{"mode"})

	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kejinlab_comment_store_failures_total",
		Help: "Failed row-store calls, by operation.",
	}, []string{"op"})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kejinlab_realtime_events_total",
		Help: "Change events published, by event type.",
	}, []string{"type"})

	LiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kejinlab_realtime_subscriptions",
		Help: "Open realtime subscriptions held by mounted widgets.",
	})

	LiveSections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kejinlab_widget_sections",
		Help: "Widget instances held in the registry.",
	})
)
