package web

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/scaninv/internal/domain"
	"github.com/vbonduro/scaninv/internal/flow"
)

type itemRequest struct {
	Name     string          `json:"name"`
	Barcode  string          `json:"barcode"`
	Category string          `json:"category"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (r itemRequest) fields() domain.Fields {
	return domain.Fields{
		Name:     r.Name,
		Barcode:  r.Barcode,
		Category: r.Category,
		Quantity: r.Quantity,
		Price:    r.Price,
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []*domain.Record
		err   error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		items, err = s.service.ItemsByCategory(r.Context(), category)
	} else {
		items, err = s.service.ListItems(r.Context())
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to list items")
		s.logger.Error("list items failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toItemsJSON(items))
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.SearchItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "search failed")
		s.logger.Error("search failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toItemsJSON(items))
}

func (s *Server) handleFilterItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.FilterItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "filter failed")
		s.logger.Error("filter failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toItemsJSON(items))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to get item")
		s.logger.Error("get item failed", "id", r.PathValue("id"), "error", err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	s.writeJSON(w, http.StatusOK, toItemJSON(item))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, r.PathValue("id"), http.StatusOK)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, editingID string, okStatus int) {
	var body itemRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	fields, err := body.fields().Normalize()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, saveJSON{Result: flow.SaveFailed.String(), Error: err.Error()})
		return
	}

	res := s.service.SaveItem(r.Context(), fields, editingID)
	resp := saveJSON{
		Result:   res.Kind.String(),
		Item:     toItemJSON(res.Record),
		Existing: toItemJSON(res.Existing),
	}

	switch res.Kind {
	case flow.SaveSucceeded:
		s.writeJSON(w, okStatus, resp)
	case flow.BarcodeConflict:
		resp.Error = "barcode already used by another item"
		s.writeJSON(w, http.StatusConflict, resp)
	default:
		status := http.StatusBadGateway
		switch {
		case errors.Is(res.Err, domain.ErrInvalidRecord):
			status = http.StatusBadRequest
			resp.Error = res.Err.Error()
		case errors.Is(res.Err, domain.ErrNotFound):
			status = http.StatusNotFound
			resp.Error = "item not found"
		default:
			resp.Error = "failed to save item, try again"
			s.logger.Error("save item failed", "id", editingID, "error", res.Err)
		}
		s.writeJSON(w, status, resp)
	}
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteItem(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to delete item")
		s.logger.Error("delete item failed", "id", r.PathValue("id"), "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta int64 `json:"delta"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}

	item, err := s.service.AdjustQuantity(r.Context(), r.PathValue("id"), body.Delta)
	if errors.Is(err, domain.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to adjust quantity")
		s.logger.Error("adjust quantity failed", "id", r.PathValue("id"), "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toItemJSON(item))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to build dashboard")
		s.logger.Error("dashboard failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDashboardJSON(d))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ready(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		s.logger.Warn("health check failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
