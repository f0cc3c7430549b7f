package purchase

import (
	"context"
	"fmt"
	"time"

	"tradepost/internal/core/apperror"
	appctx "tradepost/internal/core/context"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/numerator"
	"tradepost/internal/core/tx"
	"tradepost/internal/core/types"
	"tradepost/internal/domain"
	"tradepost/internal/domain/catalogs/location"
	"tradepost/internal/domain/catalogs/product"
	"tradepost/internal/domain/catalogs/supplier"
	"tradepost/internal/domain/events"
	"tradepost/internal/domain/inventory"
	"tradepost/pkg/logger"
)

// SupplierLookup resolves supplier references.
type SupplierLookup interface {
	GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error)
}

// ProductLookup resolves product references.
type ProductLookup interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// LocationLookup resolves the destination warehouse.
type LocationLookup interface {
	GetByID(ctx context.Context, locationID id.ID) (*location.Location, error)
}

// Service is the purchase receiving pipeline plus purchase order CRUD.
type Service struct {
	repo      Repository
	records   *inventory.Service
	suppliers SupplierLookup
	products  ProductLookup
	locations LocationLookup
	numerator numerator.Generator
	txManager tx.SerializableManager
	publisher events.Publisher
}

// NewService creates the purchase service.
func NewService(
	repo Repository,
	records *inventory.Service,
	suppliers SupplierLookup,
	products ProductLookup,
	locations LocationLookup,
	gen numerator.Generator,
	txManager tx.SerializableManager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		records:   records,
		suppliers: suppliers,
		products:  products,
		locations: locations,
		numerator: gen,
		txManager: txManager,
		publisher: publisher,
	}
}

// Create opens a purchase order. No stock moves until Receive.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Purchase, error) {
	p := NewPurchase(input.SupplierID)
	p.WarehouseID = input.WarehouseID
	p.DueDate = input.DueDate
	p.Reference = input.Reference
	p.OrderTax = types.NewMoney(input.OrderTax)
	p.ShippingCost = types.NewMoney(input.ShippingCost)
	p.DiscountAmount = types.NewMoney(input.DiscountAmount)
	p.CreatedBy = appctx.GetUserID(ctx)
	if input.PurchaseDate != nil {
		p.Date = *input.PurchaseDate
	}
	if input.Status != "" {
		if input.Status == StatusReceived {
			return nil, apperror.NewValidation("purchases cannot be created as received").
				WithDetail("field", "status")
		}
		p.Status = input.Status
	}

	if len(input.Items) == 0 {
		return nil, apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	for _, item := range input.Items {
		p.Lines = append(p.Lines, PurchaseLine{
			LineID:    id.New(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  types.NewMoney(item.UnitCost),
			Discount:  types.NewPercent(item.Discount),
			TaxRate:   types.NewPercent(item.TaxRate),
		})
	}
	p.RecalculateTotals()

	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, p); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.PurchaseConfig(), nil, p.Date)
	if err != nil {
		return nil, fmt.Errorf("generate purchase number: %w", err)
	}
	p.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		return s.repo.SaveLines(ctx, p.ID, p.Lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase created",
		"purchase_id", p.ID,
		"number", p.Number,
		"supplier_id", p.SupplierID,
		"grand_total", p.GrandTotal)

	return p, nil
}

// checkReferences verifies supplier, products and warehouse exist.
func (s *Service) checkReferences(ctx context.Context, p *Purchase) error {
	if _, err := s.suppliers.GetByID(ctx, p.SupplierID); err != nil {
		return err
	}
	for i := range p.Lines {
		if _, err := s.products.GetByID(ctx, p.Lines[i].ProductID); err != nil {
			return err
		}
	}
	if p.WarehouseID != nil {
		if _, err := s.locations.GetByID(ctx, *p.WarehouseID); err != nil {
			return err
		}
	}
	return nil
}

// Receive credits every line's quantity to the destination warehouse and
// marks the purchase received. All preconditions are checked in one
// aggregated pass before any stock moves.
func (s *Service) Receive(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	actorID := appctx.GetUserID(ctx)

	var result *Purchase
	err := s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		lines, err := s.repo.GetLines(ctx, purchaseID)
		if err != nil {
			return err
		}
		p.Lines = lines

		if p.IsReceived() {
			return apperror.NewIllegalTransition("purchase", string(p.Status), string(StatusReceived))
		}

		sup, err := s.precheck(ctx, p)
		if err != nil {
			return err
		}

		if p.WarehouseID != nil {
			note := fmt.Sprintf("Received from PO#%s — Supplier: %s", p.Number, sup.Name)
			for i := range p.Lines {
				record, err := s.records.UpsertOnIntroduction(ctx, p.Lines[i].ProductID, *p.WarehouseID, actorID)
				if err != nil {
					return err
				}
				if _, err := s.records.ApplyDelta(ctx, record.ID, p.Lines[i].Quantity,
					entity.ActionPurchaseReceived, note, entity.RefPurchase(p.ID), actorID); err != nil {
					return err
				}
			}
		}

		now := time.Now().UTC()
		p.Status = StatusReceived
		p.ReceivedDate = &now
		p.ReceivedBy = &actorID
		p.UpdatedBy = actorID
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}

		result = p
		event := events.Event{
			AggregateType: "purchase",
			AggregateID:   p.ID,
			Type:          events.TypePurchaseReceived,
			Payload:       p,
		}
		if p.WarehouseID != nil {
			event.Room = events.LocationRoom(p.WarehouseID.String())
		}
		return s.publisher.Publish(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase received",
		"purchase_id", result.ID,
		"number", result.Number,
		"lines", len(result.Lines))

	return result, nil
}

// precheck runs the aggregated receive preconditions and resolves the
// supplier for the ledger note. Violations are reported together.
func (s *Service) precheck(ctx context.Context, p *Purchase) (*supplier.Supplier, error) {
	var violations []string

	if p.DeletionMark {
		violations = append(violations, "purchase is deleted")
	}
	if len(p.Lines) == 0 {
		violations = append(violations, "purchase has no items")
	}

	sup, err := s.suppliers.GetByID(ctx, p.SupplierID)
	if err != nil {
		if apperror.IsNotFound(err) {
			violations = append(violations, "supplier does not exist")
		} else {
			return nil, err
		}
	}

	for i := range p.Lines {
		if _, err := s.products.GetByID(ctx, p.Lines[i].ProductID); err != nil {
			if apperror.IsNotFound(err) {
				violations = append(violations,
					fmt.Sprintf("product on line %d does not exist", i+1))
				continue
			}
			return nil, err
		}
	}

	if p.WarehouseID != nil {
		if _, err := s.locations.GetByID(ctx, *p.WarehouseID); err != nil {
			if apperror.IsNotFound(err) {
				violations = append(violations, "destination warehouse does not exist")
			} else {
				return nil, err
			}
		}
	}

	if len(violations) > 0 {
		return nil, apperror.NewValidation("purchase cannot be received").
			WithDetail("violations", violations)
	}
	return sup, nil
}

// RecordPayment adds a payment against the purchase and advances its
// payment status.
func (s *Service) RecordPayment(ctx context.Context, purchaseID id.ID, amount float64) (*Purchase, error) {
	var result *Purchase
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status == StatusCancelled {
			return apperror.NewValidation("cannot record payment on a cancelled purchase")
		}
		if err := p.ApplyPayment(types.NewMoney(amount)); err != nil {
			return err
		}
		p.UpdatedBy = appctx.GetUserID(ctx)
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase payment recorded",
		"purchase_id", result.ID,
		"amount_paid", result.AmountPaid,
		"payment_status", result.PaymentStatus)

	return result, nil
}

// Update edits an unreceived purchase header and its lines, recomputing
// totals. Received purchases are immutable apart from payments.
func (s *Service) Update(ctx context.Context, purchaseID id.ID, input CreateInput) (*Purchase, error) {
	var result *Purchase
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.IsReceived() {
			return apperror.NewForbidden("received purchases cannot be edited")
		}
		if p.Status == StatusCancelled {
			return apperror.NewForbidden("cancelled purchases cannot be edited")
		}

		p.SupplierID = input.SupplierID
		p.WarehouseID = input.WarehouseID
		p.DueDate = input.DueDate
		p.Reference = input.Reference
		p.OrderTax = types.NewMoney(input.OrderTax)
		p.ShippingCost = types.NewMoney(input.ShippingCost)
		p.DiscountAmount = types.NewMoney(input.DiscountAmount)
		if input.PurchaseDate != nil {
			p.Date = *input.PurchaseDate
		}
		if input.Status != "" {
			if input.Status == StatusReceived {
				return apperror.NewValidation("status cannot be set to received directly; use the receive operation").
					WithDetail("field", "status")
			}
			p.Status = input.Status
		}

		if len(input.Items) == 0 {
			return apperror.NewValidation("at least one item is required").
				WithDetail("field", "items")
		}
		p.Lines = p.Lines[:0]
		for _, item := range input.Items {
			p.Lines = append(p.Lines, PurchaseLine{
				LineID:    id.New(),
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitCost:  types.NewMoney(item.UnitCost),
				Discount:  types.NewPercent(item.Discount),
				TaxRate:   types.NewPercent(item.TaxRate),
			})
		}
		p.RecalculateTotals()

		if p.AmountPaid.GreaterThan(p.GrandTotal) {
			return apperror.NewValidation("grand total cannot drop below the amount already paid").
				WithDetail("amountPaid", p.AmountPaid.String())
		}

		if err := p.Validate(ctx); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, p); err != nil {
			return err
		}

		p.UpdatedBy = appctx.GetUserID(ctx)
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		if err := s.repo.SaveLines(ctx, p.ID, p.Lines); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a purchase with lines.
func (s *Service) GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	p, err := s.repo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	p.Lines = lines
	return p, nil
}

// Delete soft-deletes an unreceived purchase.
func (s *Service) Delete(ctx context.Context, purchaseID id.ID) error {
	p, err := s.repo.GetByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if p.IsReceived() {
		return apperror.NewForbidden("received purchases cannot be deleted")
	}
	return s.repo.SetDeletionMark(ctx, purchaseID, true)
}

// List retrieves purchases with filters.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Purchase], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
