package product

import (
	"context"
	"errors"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory adjusts on-hand stock inside a caller's transaction. Decrements
// are a single guarded UPDATE, so two transactions racing for the last units
// cannot both succeed.
type Inventory struct{}

func NewInventory() *Inventory {
	return &Inventory{}
}

// Take removes qty units and returns the product as stored after the update.
func (i *Inventory) Take(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: decrement stock")
	}

	product, err := loadProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.InsufficientStock(product.ID, product.Name, qty, product.Stock)
	}
	return product, nil
}

// Return puts qty units back on the shelf.
func (i *Inventory) Return(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: restore stock")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return loadProduct(ctx, tx, productID)
}

// Lookup reads the product as seen by the transaction.
func (i *Inventory) Lookup(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	return loadProduct(ctx, tx, productID)
}

func loadProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": productID,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return &product, nil
}
