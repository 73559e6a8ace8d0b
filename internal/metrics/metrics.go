package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hoteldesk"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "code"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings persisted.",
		},
	)

	collisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifier_collisions_total",
			Help:      "Booking or invoice number collisions that forced a retry.",
		},
		[]string{"field"},
	)

	finesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_fines_applied_total",
			Help:      "Late checkout fines applied.",
		},
	)

	fineAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_fine_amount_total",
			Help:      "Sum of applied late checkout fines.",
		},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a rate limit tier.",
		},
		[]string{"tier"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_tasks_total",
			Help:      "Sheets sync task outcomes.",
		},
		[]string{"status"},
	)

	stockMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Inventory stock movements by direction.",
		},
		[]string{"type"},
	)

	restaurantOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restaurant_orders_total",
			Help:      "Restaurant orders created, by whether they were charged to a booking.",
		},
		[]string{"linked"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, collisions, finesApplied, fineAmount, rateLimited, syncTasks,
			stockMovements, restaurantOrders)
	})
}

// IncHTTP counts a served request.
func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncCollision counts a uniqueness collision on field (booking_no, invoice_number).
func IncCollision(field string) {
	collisions.WithLabelValues(field).Inc()
}

func ObserveFine(amount float64) {
	finesApplied.Inc()
	fineAmount.Add(amount)
}

func IncRateLimited(tier string) {
	rateLimited.WithLabelValues(tier).Inc()
}

func IncSyncTask(status string) {
	syncTasks.WithLabelValues(status).Inc()
}

func IncStockMovement(movementType string) {
	stockMovements.WithLabelValues(movementType).Inc()
}

// IncOrder counts a new restaurant order.
func IncOrder(linked bool) {
	restaurantOrders.WithLabelValues(strconv.FormatBool(linked)).Inc()
}
