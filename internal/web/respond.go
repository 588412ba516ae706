package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/scaninv/internal/domain"
	"github.com/vbonduro/scaninv/internal/flow"
	"github.com/vbonduro/scaninv/internal/service"
)

// maxJSONBody bounds request bodies for the JSON endpoints.
const maxJSONBody = 1 << 20

type itemJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Barcode     string          `json:"barcode"`
	Category    string          `json:"category"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"`
	LastUpdated time.Time       `json:"last_updated"`
}

func toItemJSON(r *domain.Record) *itemJSON {
	if r == nil {
		return nil
	}
	return &itemJSON{
		ID:          r.ID,
		Name:        r.Name,
		Barcode:     r.Barcode,
		Category:    r.Category,
		Quantity:    r.Quantity,
		Price:       r.Price,
		Value:       r.Value(),
		LastUpdated: r.LastUpdated,
	}
}

func toItemsJSON(records []*domain.Record) []*itemJSON {
	out := make([]*itemJSON, 0, len(records))
	for _, r := range records {
		out = append(out, toItemJSON(r))
	}
	return out
}

type outcomeJSON struct {
	Outcome  string `json:"outcome"`
	Barcode  string `json:"barcode,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Mode     string `json:"mode,omitempty"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

type saveJSON struct {
	Result   string    `json:"result"`
	Item     *itemJSON `json:"item,omitempty"`
	Existing *itemJSON `json:"existing,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type categoryJSON struct {
	Name  string          `json:"name"`
	Count int             `json:"count"`
	Units int64           `json:"units"`
	Value decimal.Decimal `json:"value"`
	Items []*itemJSON     `json:"items"`
}

type dashboardJSON struct {
	TotalValue decimal.Decimal `json:"total_value"`
	TotalUnits int64           `json:"total_units"`
	ItemCount  int             `json:"item_count"`
	Categories []categoryJSON  `json:"categories"`
	LowStock   []*itemJSON     `json:"low_stock"`
}

func toDashboardJSON(d *service.Dashboard) dashboardJSON {
	out := dashboardJSON{
		TotalValue: d.TotalValue,
		TotalUnits: d.TotalUnits,
		ItemCount:  d.ItemCount,
		Categories: make([]categoryJSON, 0, len(d.Categories)),
		LowStock:   toItemsJSON(d.LowStock),
	}
	for _, c := range d.Categories {
		out.Categories = append(out.Categories, categoryJSON{
			Name:  c.Name,
			Count: len(c.Items),
			Units: c.Units,
			Value: c.Value,
			Items: toItemsJSON(c.Items),
		})
	}
	return out
}

// outcomeStatus maps a scan outcome to its HTTP status.
func outcomeStatus(kind flow.OutcomeKind) int {
	switch kind {
	case flow.NavigateToExisting, flow.NavigateToCreate:
		return http.StatusOK
	case flow.LookupFailed:
		return http.StatusBadGateway
	default:
		return http.StatusConflict
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
