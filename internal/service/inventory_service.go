package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/scaninv/internal/domain"
	"github.com/vbonduro/scaninv/internal/flow"
)

// DefaultLowStockThreshold is the quantity below which an item is low on stock.
const DefaultLowStockThreshold = 5

// recordRepository is the subset of recordstore.Store that InventoryService requires.
type recordRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Record, error)
	Search(ctx context.Context, query string) ([]*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Record, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type InventoryService struct {
	records           recordRepository
	resolver          *flow.Resolver
	lowStockThreshold int64
	logger            *slog.Logger
}

func NewInventoryService(
	records recordRepository,
	resolver *flow.Resolver,
	lowStockThreshold int64,
	logger *slog.Logger,
) *InventoryService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &InventoryService{
		records:           records,
		resolver:          resolver,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

func (s *InventoryService) ListItems(ctx context.Context) ([]*domain.Record, error) {
	return s.records.List(ctx)
}

// GetItem returns nil, nil when the item does not exist.
func (s *InventoryService) GetItem(ctx context.Context, id string) (*domain.Record, error) {
	return s.resolver.LookupID(ctx, id)
}

// SearchItems delegates a name search to the store. A blank query lists
// everything.
func (s *InventoryService) SearchItems(ctx context.Context, query string) ([]*domain.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.records.List(ctx)
	}
	return s.records.Search(ctx, query)
}

// FilterItems scans the full item list for query in the name, barcode or
// category, ignoring case.
func (s *InventoryService) FilterItems(ctx context.Context, query string) ([]*domain.Record, error) {
	items, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return FilterRecords(items, query), nil
}

func (s *InventoryService) ItemsByCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	items, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	var out []*domain.Record
	for _, item := range items {
		if categoryOf(item) == category {
			out = append(out, item)
		}
	}
	return out, nil
}

// SaveItem creates (editingID empty) or updates an item after checking that
// no other item holds its barcode.
func (s *InventoryService) SaveItem(ctx context.Context, fields domain.Fields, editingID string) flow.SaveResult {
	return s.resolver.Save(ctx, fields, editingID)
}

func (s *InventoryService) DeleteItem(ctx context.Context, itemID string) error {
	// Read first: the barcode is needed to drop its cached lookup.
	item, err := s.records.FindByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return domain.ErrNotFound
	}

	if err := s.records.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	s.resolver.Invalidate(ctx, item.Barcode, item.ID)
	s.logger.Info("item deleted", "id", item.ID, "barcode", item.Barcode)
	return nil
}

// AdjustQuantity adds delta to the item's quantity, stopping at zero.
func (s *InventoryService) AdjustQuantity(ctx context.Context, itemID string, delta int64) (*domain.Record, error) {
	item, err := s.records.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	qty := max(item.Quantity+delta, 0)
	updated, err := s.records.Update(ctx, itemID, domain.Patch{Quantity: &qty})
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}

	s.resolver.Invalidate(ctx, updated.Barcode, updated.ID)
	s.logger.Debug("quantity adjusted", "id", itemID, "from", item.Quantity, "to", updated.Quantity)
	return updated, nil
}

func (s *InventoryService) Dashboard(ctx context.Context) (*Dashboard, error) {
	items, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return BuildDashboard(items, s.lowStockThreshold), nil
}

// Ready reports whether the store collection can be reached.
func (s *InventoryService) Ready(ctx context.Context) error {
	if err := s.records.Ping(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}
	return nil
}

// FilterRecords returns the records whose name, barcode or category contains
// query, ignoring case. A blank query returns records unchanged.
func FilterRecords(records []*domain.Record, query string) []*domain.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	out := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Barcode), q) ||
			strings.Contains(strings.ToLower(r.Category), q) {
			out = append(out, r)
		}
	}
	return out
}
