package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// Umbral de stock por defecto cuando el caller no especifica uno.
const defaultMinimumStockLevel = 10

// ItemUseCase casos de uso del catálogo. La cantidad en stock no se crea ni
// se edita por aquí: nace en 0 y solo la muta el ledger vía movimientos.
type ItemUseCase struct {
	repo repository.ItemRepository
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository) *ItemUseCase {
	return &ItemUseCase{repo: repo}
}

// CreateItemInput datos para dar de alta un item del catálogo.
type CreateItemInput struct {
	SKU               string
	Name              string
	Description       string
	CategoryID        string
	SupplierID        string
	UnitPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	MinimumStockLevel *int64
	UnitOfMeasurement string
	ActorID           string
}

// Create da de alta un item. El stock inicia en 0 (se carga con un
// movimiento "in" o un "adjustment" inicial, nunca directo).
func (uc *ItemUseCase) Create(ctx context.Context, in CreateItemInput) (*entity.Item, error) {
	if in.SKU == "" || in.Name == "" || in.CategoryID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.UnitPrice.LessThan(decimal.Zero) || in.SellingPrice.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	if in.UnitOfMeasurement == "" {
		in.UnitOfMeasurement = entity.UnitPieces
	}
	if !entity.ValidUnit(in.UnitOfMeasurement) {
		return nil, domain.ErrInvalidInput
	}
	minLevel := int64(defaultMinimumStockLevel)
	if in.MinimumStockLevel != nil {
		if *in.MinimumStockLevel < 0 {
			return nil, domain.ErrInvalidInput
		}
		minLevel = *in.MinimumStockLevel
	}

	existing, err := uc.repo.GetBySKU(in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	item := &entity.Item{
		ID:                uuid.New().String(),
		SKU:               in.SKU,
		Name:              in.Name,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		SupplierID:        in.SupplierID,
		UnitPrice:         in.UnitPrice,
		SellingPrice:      in.SellingPrice,
		QuantityInStock:   0,
		MinimumStockLevel: minLevel,
		UnitOfMeasurement: in.UnitOfMeasurement,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         in.ActorID,
	}
	if err := uc.repo.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get obtiene un item por SKU.
func (uc *ItemUseCase) Get(ctx context.Context, sku string) (*entity.Item, error) {
	item, err := uc.repo.GetBySKU(sku)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// UpdateItemInput campos editables de un item (patch con punteros).
// No existe campo de cantidad: quantity_in_stock es de solo lectura fuera
// del ledger por construcción.
type UpdateItemInput struct {
	Name              *string
	Description       *string
	CategoryID        *string
	SupplierID        *string
	UnitPrice         *decimal.Decimal
	SellingPrice      *decimal.Decimal
	MinimumStockLevel *int64
	UnitOfMeasurement *string
}

// UpdateMetadata actualiza los metadatos de un item por SKU.
func (uc *ItemUseCase) UpdateMetadata(ctx context.Context, sku string, in UpdateItemInput) (*entity.Item, error) {
	item, err := uc.repo.GetBySKU(sku)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, domain.ErrInvalidInput
		}
		item.Name = *in.Name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.CategoryID != nil {
		item.CategoryID = *in.CategoryID
	}
	if in.SupplierID != nil {
		item.SupplierID = *in.SupplierID
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		item.UnitPrice = *in.UnitPrice
	}
	if in.SellingPrice != nil {
		if in.SellingPrice.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		item.SellingPrice = *in.SellingPrice
	}
	if in.MinimumStockLevel != nil {
		if *in.MinimumStockLevel < 0 {
			return nil, domain.ErrInvalidInput
		}
		item.MinimumStockLevel = *in.MinimumStockLevel
	}
	if in.UnitOfMeasurement != nil {
		if !entity.ValidUnit(*in.UnitOfMeasurement) {
			return nil, domain.ErrInvalidInput
		}
		item.UnitOfMeasurement = *in.UnitOfMeasurement
	}
	item.UpdatedAt = time.Now()
	if err := uc.repo.UpdateMetadata(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Deactivate marca un item como inactivo (soft delete). Los movimientos y
// líneas de orden históricos conservan la referencia al item.
func (uc *ItemUseCase) Deactivate(ctx context.Context, sku string) error {
	item, err := uc.repo.GetBySKU(sku)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return uc.repo.SetActive(item.ID, false)
}

// List lista items activos con paginación.
func (uc *ItemUseCase) List(ctx context.Context, limit, offset int) ([]*entity.Item, error) {
	return uc.repo.ListActive(limit, offset)
}
