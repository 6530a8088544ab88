package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ricarica/internal/core"
	"ricarica/internal/tablestore"
)

// SupplierService manages charging suppliers. The home supplier is special:
// it always exists and cannot be removed.
type SupplierService struct {
	store tablestore.SupplierStore
}

func NewSupplierService(store tablestore.SupplierStore) *SupplierService {
	return &SupplierService{store: store}
}

func (s *SupplierService) List(ctx context.Context) ([]core.Supplier, error) {
	return s.store.ListSuppliers(ctx)
}

// Create adds an external supplier. Names must be unique, case insensitive.
func (s *SupplierService) Create(ctx context.Context, supplier core.Supplier) (core.Supplier, error) {
	if supplier.Kind == "" {
		supplier.Kind = core.SupplierExternal
	}
	if err := supplier.Validate(); err != nil {
		return core.Supplier{}, err
	}

	existing, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("list suppliers: %w", err)
	}
	for _, other := range existing {
		if strings.EqualFold(other.Name, supplier.Name) {
			return core.Supplier{}, core.Invalid("name", "a supplier with this name already exists")
		}
	}

	stored, err := s.store.InsertSupplier(ctx, supplier)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}

	slog.InfoContext(ctx, "Supplier created", "id", stored.ID, "name", stored.Name)
	return stored, nil
}

// Update changes a supplier's tariff or name. The home supplier keeps its
// kind regardless of the input.
func (s *SupplierService) Update(ctx context.Context, supplier core.Supplier) error {
	current, err := s.find(ctx, supplier.ID)
	if err != nil {
		return err
	}
	if current.IsHome() {
		supplier.Kind = core.SupplierHome
	}
	if err := supplier.Validate(); err != nil {
		return err
	}

	existing, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return fmt.Errorf("list suppliers: %w", err)
	}
	for _, other := range existing {
		if other.ID != supplier.ID && strings.EqualFold(other.Name, supplier.Name) {
			return core.Invalid("name", "a supplier with this name already exists")
		}
	}

	return s.store.UpdateSupplier(ctx, supplier)
}

// Delete removes an external supplier. Deleting the home supplier is a
// conflict, historical sessions keep their denormalized supplier data.
func (s *SupplierService) Delete(ctx context.Context, id int64) error {
	supplier, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if supplier.IsHome() {
		return core.Conflict("the home supplier cannot be deleted")
	}
	return s.store.DeleteSupplier(ctx, id)
}

// EnsureHomeSupplier seeds the home supplier when the store has none, for
// remote backends where migrations cannot seed it.
func (s *SupplierService) EnsureHomeSupplier(ctx context.Context) (core.Supplier, error) {
	existing, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("list suppliers: %w", err)
	}
	for _, supplier := range existing {
		if supplier.IsHome() {
			return supplier, nil
		}
	}

	home := core.Supplier{
		Name: core.HomeSupplierName,
		Type: core.SupplierAC,
		Kind: core.SupplierHome,
	}
	stored, err := s.store.InsertSupplier(ctx, home)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("seed home supplier: %w", err)
	}

	slog.InfoContext(ctx, "Home supplier seeded", "id", stored.ID)
	return stored, nil
}

func (s *SupplierService) find(ctx context.Context, id int64) (core.Supplier, error) {
	suppliers, err := s.store.ListSuppliers(ctx)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("list suppliers: %w", err)
	}
	for _, supplier := range suppliers {
		if supplier.ID == id {
			return supplier, nil
		}
	}
	return core.Supplier{}, core.NotFound("supplier", id)
}
