package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmmarket_orders_created_total",
			Help: "Total number of orders placed",
		},
	)

	orderStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmmarket_order_status_changes_total",
			Help: "Total number of order status updates",
		},
		[]string{"from", "to"},
	)

	reviewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmmarket_reviews_created_total",
			Help: "Total number of reviews submitted",
		},
	)

	authorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmmarket_authorization_denials_total",
			Help: "Total number of denied actions",
		},
		[]string{"action", "reason"},
	)
)
