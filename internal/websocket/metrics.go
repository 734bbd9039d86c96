package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookclub_websocket_connections",
		Help: "Number of registered notification websocket connections",
	})

	notificationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_notifications_dropped_total",
		Help: "Notifications dropped because a buffer was full",
	}, []string{"reason"})

	notificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookclub_notifications_delivered_total",
		Help: "Notifications queued on a client connection",
	})
)
