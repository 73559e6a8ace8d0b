package api

import (
	"net/http"
	"strconv"
	"strings"

	"hoteldesk/internal/models"
	"hoteldesk/internal/service"
)

type itemPatchRequest struct {
	ItemCode      *string  `json:"item_code"`
	Name          *string  `json:"name"`
	Category      *string  `json:"category"`
	Description   *string  `json:"description"`
	Unit          *string  `json:"unit"`
	MinStockLevel *int     `json:"min_stock_level"`
	UnitPrice     *float64 `json:"unit_price"`
	SupplierName  *string  `json:"supplier_name"`
}

type movementRequest struct {
	Quantity  int    `json:"quantity"`
	IssuedTo  string `json:"issued_to"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
	BookingID int64  `json:"booking_id"`
}

type stockResponse struct {
	Item     *models.InventoryItem `json:"item"`
	Movement *models.StockMovement `json:"movement"`
}

// queryID reads an optional positive integer query parameter; absent means 0.
func queryID(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, &service.ValidationError{Field: name, Message: "must be a positive integer", Err: err}
	}
	return id, nil
}

func (s *HTTPServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter := models.InventoryFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Query:    r.URL.Query().Get("q"),
	}
	items, err := s.deps.Inventory.ListItems(r.Context(), filter)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Inventory.LowStock(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleListMovements(w http.ResponseWriter, r *http.Request) {
	itemID, err := queryID(r, "item_id")
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	limit, err := queryID(r, "limit")
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	moves, err := s.deps.Inventory.Movements(r.Context(), itemID, int(limit))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if moves == nil {
		moves = []*models.StockMovement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": moves})
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var it models.InventoryItem
	if err := decodeBody(r, &it, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	it.ID = 0
	if err := s.deps.Inventory.CreateItem(r.Context(), &it); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, &it)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	it, err := s.deps.Inventory.GetItem(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req itemPatchRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	it, err := s.deps.Inventory.UpdateItem(r.Context(), id, service.ItemPatch(req))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *HTTPServer) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Inventory.DeleteItem(r.Context(), id); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// movement decodes the shared body of the stock endpoints.
func (s *HTTPServer) movement(w http.ResponseWriter, r *http.Request) (*models.StockMovement, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	var req movementRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return nil, false
	}
	return &models.StockMovement{
		ItemID:    id,
		Quantity:  req.Quantity,
		IssuedTo:  req.IssuedTo,
		Reason:    req.Reason,
		Notes:     req.Notes,
		BookingID: req.BookingID,
	}, true
}

func (s *HTTPServer) handleStockIn(w http.ResponseWriter, r *http.Request) {
	m, ok := s.movement(w, r)
	if !ok {
		return
	}
	it, err := s.deps.Inventory.StockIn(r.Context(), m)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{Item: it, Movement: m})
}

func (s *HTTPServer) handleStockOut(w http.ResponseWriter, r *http.Request) {
	m, ok := s.movement(w, r)
	if !ok {
		return
	}
	it, err := s.deps.Inventory.StockOut(r.Context(), m)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{Item: it, Movement: m})
}

func (s *HTTPServer) handleConsume(w http.ResponseWriter, r *http.Request) {
	m, ok := s.movement(w, r)
	if !ok {
		return
	}
	it, err := s.deps.Inventory.ConsumeForRoomService(r.Context(), m.ItemID, m.Quantity, m.BookingID)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}
