package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gasnusa/gasnusa/internal/catalog"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// SeedCatalog inserts the four canonical LPG products when missing.
// Existing rows are left untouched, so it is safe to run repeatedly.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (int, error) {
	if pool == nil {
		return 0, errors.New("seed: pool not configured")
	}
	repo := catalog.NewRepository(pool)
	svc := catalog.NewService(repo, logger, catalog.ServiceConfig{})

	defaults := []catalog.Product{
		{VariantCode: catalog.VariantKg3, Name: "LPG 3kg Subsidi", SizeKg: 3, Category: catalog.CategorySubsidized,
			CostPrice: decimal.NewFromInt(14000), SellPrice: decimal.NewFromInt(18000), IsActive: true},
		{VariantCode: catalog.VariantKg5, Name: "LPG 5.5kg Bright Gas", SizeKg: 5.5, Category: catalog.CategoryNonSubsidized,
			CostPrice: decimal.NewFromInt(76000), SellPrice: decimal.NewFromInt(90000), IsActive: true},
		{VariantCode: catalog.VariantKg12, Name: "LPG 12kg", SizeKg: 12, Category: catalog.CategoryNonSubsidized,
			CostPrice: decimal.NewFromInt(150000), SellPrice: decimal.NewFromInt(180000), IsActive: true},
		{VariantCode: catalog.VariantKg50, Name: "LPG 50kg", SizeKg: 50, Category: catalog.CategoryNonSubsidized,
			CostPrice: decimal.NewFromInt(650000), SellPrice: decimal.NewFromInt(750000), IsActive: true},
	}

	created := 0
	for _, p := range defaults {
		if _, err := repo.GetByVariant(ctx, p.VariantCode); err == nil {
			continue
		} else if !errors.Is(err, shared.ErrNotFound) {
			return created, fmt.Errorf("check variant %s: %w", p.VariantCode, err)
		}
		if _, err := svc.Create(ctx, p); err != nil {
			return created, fmt.Errorf("seed variant %s: %w", p.VariantCode, err)
		}
		created++
	}
	return created, nil
}
