package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel is the category given to records saved without one.
const UncategorizedLabel = "Uncategorized"

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is one inventory item as persisted by the store.
type Record struct {
	ID          string
	Name        string
	Barcode     string
	Category    string
	Quantity    int64
	Price       decimal.Decimal
	LastUpdated time.Time
}

// Value is price times quantity.
func (r *Record) Value() decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(r.Quantity))
}

// Fields are the writable attributes of a Record.
type Fields struct {
	Name     string
	Barcode  string
	Category string
	Quantity int64
	Price    decimal.Decimal
}

// Normalize trims text fields, applies the category default and rejects
// values that may not be persisted.
func (f Fields) Normalize() (Fields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Barcode = strings.TrimSpace(f.Barcode)
	f.Category = strings.TrimSpace(f.Category)
	if f.Category == "" {
		f.Category = UncategorizedLabel
	}

	if f.Name == "" {
		return f, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if f.Quantity < 0 {
		return f, fmt.Errorf("%w: quantity must not be negative", ErrInvalidRecord)
	}
	if f.Price.IsNegative() {
		return f, fmt.Errorf("%w: price must not be negative", ErrInvalidRecord)
	}
	return f, nil
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name     *string
	Barcode  *string
	Category *string
	Quantity *int64
	Price    *decimal.Decimal
}

// PatchFrom builds a Patch that overwrites every writable field.
func PatchFrom(f Fields) Patch {
	return Patch{
		Name:     &f.Name,
		Barcode:  &f.Barcode,
		Category: &f.Category,
		Quantity: &f.Quantity,
		Price:    &f.Price,
	}
}

// Apply returns r with the patch applied. ID and LastUpdated are untouched.
func (p Patch) Apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Barcode != nil {
		r.Barcode = *p.Barcode
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.Price != nil {
		r.Price = *p.Price
	}
	return r
}
