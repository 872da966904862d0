package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, sku, name, description, category_id, supplier_id,
	unit_price, selling_price, quantity_in_stock, minimum_stock_level,
	unit_of_measurement, is_active, created_at, updated_at, created_by`

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de catálogo. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Create persiste un item nuevo. El stock inicia en el valor del entity (0
// desde el caso de uso de catálogo).
func (r *ItemRepo) Create(item *entity.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.SKU, item.Name, item.Description, item.CategoryID,
		nullIfEmpty(item.SupplierID), item.UnitPrice, item.SellingPrice,
		item.QuantityInStock, item.MinimumStockLevel, item.UnitOfMeasurement,
		item.IsActive, item.CreatedAt, item.UpdatedAt, nullIfEmpty(item.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID obtiene un item por ID; (nil, nil) si no existe.
func (r *ItemRepo) GetByID(id string) (*entity.Item, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

// GetBySKU obtiene un item por SKU; (nil, nil) si no existe.
func (r *ItemRepo) GetBySKU(sku string) (*entity.Item, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku)
}

// GetForUpdate obtiene el item y bloquea la fila (SELECT FOR UPDATE).
// Serializa la sección crítica leer-verificar-escribir del ledger por item.
func (r *ItemRepo) GetForUpdate(id string) (*entity.Item, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
}

func (r *ItemRepo) getOne(query string, arg any) (*entity.Item, error) {
	var i entity.Item
	var supplierID, createdBy *string
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&i.ID, &i.SKU, &i.Name, &i.Description, &i.CategoryID, &supplierID,
		&i.UnitPrice, &i.SellingPrice, &i.QuantityInStock, &i.MinimumStockLevel,
		&i.UnitOfMeasurement, &i.IsActive, &i.CreatedAt, &i.UpdatedAt, &createdBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if supplierID != nil {
		i.SupplierID = *supplierID
	}
	if createdBy != nil {
		i.CreatedBy = *createdBy
	}
	return &i, nil
}

// UpdateMetadata actualiza los metadatos del item. La columna
// quantity_in_stock queda fuera del UPDATE a propósito: solo la escribe el
// ledger vía UpdateQuantity.
func (r *ItemRepo) UpdateMetadata(item *entity.Item) error {
	query := `
		UPDATE items
		SET name = $2, description = $3, category_id = $4, supplier_id = $5,
		    unit_price = $6, selling_price = $7, minimum_stock_level = $8,
		    unit_of_measurement = $9, updated_at = $10
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.Description, item.CategoryID,
		nullIfEmpty(item.SupplierID), item.UnitPrice, item.SellingPrice,
		item.MinimumStockLevel, item.UnitOfMeasurement, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// UpdateQuantity escribe la nueva cantidad (solo el ledger, con la fila ya
// bloqueada por GetForUpdate en la misma tx). El CHECK de la tabla rechaza
// negativos como última línea de defensa.
func (r *ItemRepo) UpdateQuantity(id string, quantity int64) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE items SET quantity_in_stock = $2, updated_at = now() WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	return nil
}

// SetActive activa/desactiva un item (soft delete; el histórico conserva la referencia).
func (r *ItemRepo) SetActive(id string, active bool) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE items SET is_active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("set item active: %w", err)
	}
	return nil
}

// ListActive lista items activos por nombre, con paginación.
func (r *ItemRepo) ListActive(limit, offset int) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_active ORDER BY name LIMIT $1 OFFSET $2`
	return r.list(query, limit, offset)
}

// ListLowStock items activos con stock en o bajo el umbral mínimo.
func (r *ItemRepo) ListLowStock() ([]*entity.Item, error) {
	query := `
		SELECT ` + itemColumns + ` FROM items
		WHERE is_active AND quantity_in_stock <= minimum_stock_level
		ORDER BY name`
	return r.list(query)
}

func (r *ItemRepo) list(query string, args ...any) ([]*entity.Item, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		var i entity.Item
		var supplierID, createdBy *string
		if err := rows.Scan(
			&i.ID, &i.SKU, &i.Name, &i.Description, &i.CategoryID, &supplierID,
			&i.UnitPrice, &i.SellingPrice, &i.QuantityInStock, &i.MinimumStockLevel,
			&i.UnitOfMeasurement, &i.IsActive, &i.CreatedAt, &i.UpdatedAt, &createdBy,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if supplierID != nil {
			i.SupplierID = *supplierID
		}
		if createdBy != nil {
			i.CreatedBy = *createdBy
		}
		list = append(list, &i)
	}
	return list, rows.Err()
}

// TotalStockValue valorización del stock de items activos (Σ cantidad × costo).
func (r *ItemRepo) TotalStockValue() (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(quantity_in_stock * unit_price), 0) FROM items WHERE is_active`,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total stock value: %w", err)
	}
	return total, nil
}

// CountActive cuenta los items activos.
func (r *ItemRepo) CountActive() (int64, error) {
	var n int64
	err := r.q.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM items WHERE is_active`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}
