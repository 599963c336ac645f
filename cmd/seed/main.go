package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pedalmarket/marketplace-backend/internal/config"
	"github.com/pedalmarket/marketplace-backend/internal/db"
	"github.com/pedalmarket/marketplace-backend/internal/model"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	seedSellerID = "seed-seller"
	seedBuyerID  = "seed-buyer"
)

type seedProduct struct {
	Title     string
	Brand     string
	Model     string
	Category  string
	Condition string
	Price     string
	Shipping  string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("products already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	products := repository.NewProductRepository(gdb)
	vouchers := repository.NewVoucherRepository(gdb)
	items := buildSeedProducts()

	err = repository.NewTransactor(gdb).WithinTx(ctx, func(ctx context.Context) error {
		for _, it := range items {
			p, err := it.toModel()
			if err != nil {
				return err
			}
			if err := products.Create(ctx, p); err != nil {
				return fmt.Errorf("insert product %q: %w", it.Title, err)
			}
		}
		for _, v := range buildSeedVouchers(time.Now()) {
			if err := vouchers.Create(ctx, &v); err != nil {
				return fmt.Errorf("insert voucher %q: %w", v.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("seeded %d products", len(items))
	return nil
}

func (s seedProduct) toModel() (*model.Product, error) {
	price, err := decimal.NewFromString(s.Price)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", s.Price, err)
	}
	shipping, err := decimal.NewFromString(s.Shipping)
	if err != nil {
		return nil, fmt.Errorf("shipping %q: %w", s.Shipping, err)
	}
	title := strings.TrimSpace(s.Title)
	return &model.Product{
		SellerID:      seedSellerID,
		Title:         title,
		Brand:         s.Brand,
		Model:         s.Model,
		Category:      s.Category,
		Condition:     s.Condition,
		Description:   fmt.Sprintf("%s %s (%s). Garage kept, serviced before listing.", s.Brand, s.Model, s.Condition),
		Price:         price,
		ShippingCost:  shipping,
		IsActive:      true,
		ListingStatus: model.ListingStatusActive,
	}, nil
}

func buildSeedProducts() []seedProduct {
	return []seedProduct{
		{Title: "Trek Domane SL 6 56cm", Brand: "Trek", Model: "Domane SL 6", Category: "road", Condition: "like_new", Price: "3450.00", Shipping: "120.00"},
		{Title: "Specialized Tarmac SL7 Comp", Brand: "Specialized", Model: "Tarmac SL7 Comp", Category: "road", Condition: "good", Price: "3900.00", Shipping: "120.00"},
		{Title: "Giant TCR Advanced 2", Brand: "Giant", Model: "TCR Advanced 2", Category: "road", Condition: "fair", Price: "1650.00", Shipping: "95.00"},
		{Title: "Santa Cruz Hightower C", Brand: "Santa Cruz", Model: "Hightower C", Category: "mountain", Condition: "good", Price: "4200.00", Shipping: "150.00"},
		{Title: "Canyon Spectral 125 CF 7", Brand: "Canyon", Model: "Spectral 125 CF 7", Category: "mountain", Condition: "like_new", Price: "3600.00", Shipping: "150.00"},
		{Title: "Cannondale Topstone Carbon 4", Brand: "Cannondale", Model: "Topstone Carbon 4", Category: "gravel", Condition: "like_new", Price: "2800.00", Shipping: "110.00"},
		{Title: "Brompton C Line Explore", Brand: "Brompton", Model: "C Line Explore", Category: "folding", Condition: "good", Price: "1750.00", Shipping: "60.00"},
		{Title: "Shimano Ultegra R8100 groupset", Brand: "Shimano", Model: "Ultegra R8100", Category: "components", Condition: "like_new", Price: "1450.00", Shipping: "25.00"},
		{Title: "Zipp 303 Firecrest wheelset", Brand: "Zipp", Model: "303 Firecrest", Category: "wheels", Condition: "like_new", Price: "1200.00", Shipping: "40.00"},
		{Title: "Wahoo KICKR Core trainer", Brand: "Wahoo", Model: "KICKR Core", Category: "accessories", Condition: "good", Price: "520.00", Shipping: "35.00"},
	}
}

func buildSeedVouchers(now time.Time) []model.Voucher {
	expires := now.AddDate(0, 3, 0)
	return []model.Voucher{
		{UserID: seedBuyerID, Code: "WELCOME50", DiscountAmount: decimal.NewFromInt(50), MinPurchaseAmount: decimal.NewFromInt(500), Status: model.VoucherStatusActive, ExpiresAt: &expires},
		{UserID: seedBuyerID, Code: "RIDE100", DiscountAmount: decimal.NewFromInt(100), MinPurchaseAmount: decimal.NewFromInt(2000), Status: model.VoucherStatusActive, ExpiresAt: &expires},
	}
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Product{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count products: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
