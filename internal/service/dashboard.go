package service

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/scaninv/internal/domain"
)

// CategoryStat aggregates the items of one category.
type CategoryStat struct {
	Name  string
	Units int64
	Value decimal.Decimal
	Items []*domain.Record
}

type Dashboard struct {
	TotalValue decimal.Decimal
	TotalUnits int64
	ItemCount  int
	// Categories are ordered by value, highest first.
	Categories []*CategoryStat
	// LowStock holds items below the threshold, lowest quantity first.
	LowStock []*domain.Record
}

// BuildDashboard computes the dashboard figures from a full item list.
func BuildDashboard(items []*domain.Record, lowStockThreshold int64) *Dashboard {
	d := &Dashboard{
		TotalValue: decimal.Zero,
		ItemCount:  len(items),
		Categories: []*CategoryStat{},
		LowStock:   []*domain.Record{},
	}

	byName := make(map[string]*CategoryStat)
	for _, item := range items {
		value := item.Value()
		d.TotalValue = d.TotalValue.Add(value)
		d.TotalUnits += item.Quantity

		name := categoryOf(item)
		stat, ok := byName[name]
		if !ok {
			stat = &CategoryStat{Name: name, Value: decimal.Zero}
			byName[name] = stat
			d.Categories = append(d.Categories, stat)
		}
		stat.Units += item.Quantity
		stat.Value = stat.Value.Add(value)
		stat.Items = append(stat.Items, item)

		if item.Quantity < lowStockThreshold {
			d.LowStock = append(d.LowStock, item)
		}
	}

	slices.SortStableFunc(d.Categories, func(a, b *CategoryStat) int {
		return b.Value.Cmp(a.Value)
	})
	slices.SortStableFunc(d.LowStock, func(a, b *domain.Record) int {
		return cmp.Compare(a.Quantity, b.Quantity)
	})
	return d
}

func categoryOf(r *domain.Record) string {
	if r.Category == "" {
		return domain.UncategorizedLabel
	}
	return r.Category
}
