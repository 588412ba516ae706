package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/scaninv/internal/domain"
)

const selectRecord = `SELECT id, name, barcode, category, quantity, price, last_updated FROM records`

type recordRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Barcode     string          `db:"barcode"`
	Category    string          `db:"category"`
	Quantity    int64           `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	LastUpdated time.Time       `db:"last_updated"`
}

func (r recordRow) toDomain() *domain.Record {
	return &domain.Record{
		ID:          r.ID,
		Name:        r.Name,
		Barcode:     r.Barcode,
		Category:    r.Category,
		Quantity:    r.Quantity,
		Price:       r.Price,
		LastUpdated: r.LastUpdated,
	}
}

// RecordStore keeps inventory records in SQLite. It is the local backend used
// in development and tests; production talks to the remote document store.
type RecordStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{
		db:  sqlx.NewDb(db, "sqlite"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *RecordStore) Create(ctx context.Context, fields domain.Fields) (*domain.Record, error) {
	row := recordRow{
		ID:          uuid.NewString(),
		Name:        fields.Name,
		Barcode:     fields.Barcode,
		Category:    fields.Category,
		Quantity:    fields.Quantity,
		Price:       fields.Price,
		LastUpdated: s.now(),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO records (id, name, barcode, category, quantity, price, last_updated)
		VALUES (:id, :name, :barcode, :category, :quantity, :price, :last_updated)
	`, row)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return s.FindByID(ctx, row.ID)
}

func (s *RecordStore) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, selectRecord+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return row.toDomain(), nil
}

// FindByBarcode returns matches in insertion order, which is the order a
// caller treats as canonical when the barcode is shared.
func (s *RecordStore) FindByBarcode(ctx context.Context, barcode string) ([]*domain.Record, error) {
	return s.selectRecords(ctx, "find records by barcode", selectRecord+` WHERE barcode = ? ORDER BY seq ASC`, barcode)
}

func (s *RecordStore) List(ctx context.Context) ([]*domain.Record, error) {
	return s.selectRecords(ctx, "list records", selectRecord+` ORDER BY seq ASC`)
}

func (s *RecordStore) Search(ctx context.Context, query string) ([]*domain.Record, error) {
	// Case-insensitive search with wildcards
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.selectRecords(ctx, "search records", selectRecord+` WHERE LOWER(name) LIKE ? ORDER BY name ASC`, pattern)
}

func (s *RecordStore) selectRecords(ctx context.Context, op, query string, args ...any) ([]*domain.Record, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	records := make([]*domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func (s *RecordStore) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Record, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	next := patch.Apply(*current)
	result, err := s.db.ExecContext(ctx, `
		UPDATE records SET name = ?, barcode = ?, category = ?, quantity = ?, price = ?, last_updated = ?
		WHERE id = ?
	`, next.Name, next.Barcode, next.Category, next.Quantity, next.Price, s.now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return s.FindByID(ctx, id)
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
