package api

import (
	"net/http"
	"strings"

	"hoteldesk/internal/models"
	"hoteldesk/internal/service"
)

type orderPatchRequest struct {
	TableNo      *string            `json:"table_no"`
	CustomerName *string            `json:"customer_name"`
	Notes        *string            `json:"notes"`
	Items        []models.OrderItem `json:"items"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	bookingID, err := queryID(r, "booking_id")
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	filter := models.OrderFilter{
		BookingID: bookingID,
		Status:    strings.TrimSpace(r.URL.Query().Get("status")),
	}
	s.writeOrders(w, func() ([]*models.RestaurantOrder, error) {
		return s.deps.Orders.ListOrders(r.Context(), filter)
	})
}

func (s *HTTPServer) handleListBookingOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeOrders(w, func() ([]*models.RestaurantOrder, error) {
		return s.deps.Orders.ListByBooking(r.Context(), id)
	})
}

func (s *HTTPServer) writeOrders(w http.ResponseWriter, list func() ([]*models.RestaurantOrder, error)) {
	orders, err := list()
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	var total float64
	for _, o := range orders {
		total += o.Amount
	}
	if orders == nil {
		orders = []*models.RestaurantOrder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "total_amount": total})
}

func (s *HTTPServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var o models.RestaurantOrder
	if err := decodeBody(r, &o, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	o.ID = 0
	if err := s.deps.Orders.CreateOrder(r.Context(), &o); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, &o)
}

func (s *HTTPServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := s.deps.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *HTTPServer) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req orderPatchRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	o, err := s.deps.Orders.UpdateOrder(r.Context(), id, service.OrderPatch(req))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *HTTPServer) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req orderStatusRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	o, err := s.deps.Orders.UpdateStatus(r.Context(), id, strings.TrimSpace(req.Status))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *HTTPServer) handleLinkOrders(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Orders.LinkUnlinked(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
