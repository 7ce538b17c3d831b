package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
)

const LowStockJobName = "low_stock_report"

type lowStockReader interface {
	ListLowStock(ctx context.Context, threshold int) ([]models.Product, error)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Products  lowStockReader
	Threshold int
}

// NewLowStockJob logs every product whose stock is at or below Threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Threshold < 0 {
		return nil, fmt.Errorf("low stock threshold must not be negative")
	}
	return &lowStockJob{
		logg:      params.Logger,
		products:  params.Products,
		threshold: params.Threshold,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	products  lowStockReader
	threshold int
}

func (j *lowStockJob) Name() string { return LowStockJobName }

func (j *lowStockJob) Run(ctx context.Context) error {
	products, err := j.products.ListLowStock(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("list low stock products: %w", err)
	}
	outOfStock := 0
	for _, product := range products {
		if product.Stock == 0 {
			outOfStock++
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"product_id": product.ID.String(),
			"product":    product.Name,
			"stock":      product.Stock,
		})
		j.logg.Warn(logCtx, "product.low_stock")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"count":        len(products),
		"out_of_stock": outOfStock,
		"threshold":    j.threshold,
	}), "product.low_stock_scan_complete")
	return nil
}
