package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"catalog-service/config"
	"catalog-service/internal/models"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// seedProduct is one entry of a seed file
type seedProduct struct {
	models.Product
	ShowOnWeb *bool    `json:"showOnWeb"`
	Related   []string `json:"related"`
}

// UnmarshalJSON decodes the product through its lenient decoder and the
// seed-only fields separately
func (s *seedProduct) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.Product); err != nil {
		return err
	}
	var extra struct {
		ShowOnWeb *bool    `json:"showOnWeb"`
		Related   []string `json:"related"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	s.ShowOnWeb = extra.ShowOnWeb
	s.Related = extra.Related
	return nil
}

func main() {
	file := flag.String("file", "seed.json", "JSON array of products to load")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("Failed to read seed file", zap.String("file", *file), zap.Error(err))
	}

	var products []seedProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		logger.Fatal("Failed to decode seed file", zap.String("file", *file), zap.Error(err))
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// products first so related rows can reference them
	for i := range products {
		p := &products[i]
		if issues := p.DecodeIssues(); len(issues) > 0 {
			logger.Warn("Seed product has malformed fields", zap.String("product_id", p.ID), zap.Strings("fields", issues))
		}
		showOnWeb := p.ShowOnWeb == nil || *p.ShowOnWeb
		if err := db.UpsertProduct(ctx, &p.Product, showOnWeb); err != nil {
			logger.Fatal("Failed to upsert product", zap.String("product_id", p.ID), zap.Error(err))
		}
	}

	for i := range products {
		p := &products[i]
		if p.Related == nil {
			continue
		}
		if err := db.SetRelated(ctx, p.ID, p.Related); err != nil {
			logger.Fatal("Failed to set related products", zap.String("product_id", p.ID), zap.Error(err))
		}
	}

	logger.Info("Seed complete", zap.Int("products", len(products)))
}
