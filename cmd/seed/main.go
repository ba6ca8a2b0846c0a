// Package main provides a tool to seed the database with demo catalog data.
//
// It fills an empty store with categories, tags, products, and reviews so the
// catalog endpoints have something to serve during development.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/megano --products 50
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/store/sqlite"
)

var (
	dataPath     = flag.String("data-path", "", "Data directory holding megano.db")
	productCount = flag.Int("products", 30, "Number of products to create")
	currency     = flag.String("currency", "USD", "ISO 4217 currency code for prices")
)

var categoryNames = []string{
	"Electronics", "Home & Kitchen", "Sports", "Books", "Toys", "Clothing",
}

var tagNames = []string{
	"sale", "new", "popular", "limited", "eco", "premium",
}

func main() {
	flag.Parse()

	path := *dataPath
	if path == "" {
		path = os.ExpandEnv("$HOME/megano")
	}
	dbPath := filepath.Join(path, "megano.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, *currency, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	categories := make([]domain.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		c, err := s.CreateCategory(ctx, name)
		if err != nil {
			log.Fatalf("Failed to create category %q: %v", name, err)
		}
		categories = append(categories, *c)
	}

	tags := make([]domain.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		t, err := s.CreateTag(ctx, name)
		if err != nil {
			log.Fatalf("Failed to create tag %q: %v", name, err)
		}
		tags = append(tags, *t)
	}

	for i := 0; i < *productCount; i++ {
		product, err := s.CreateProduct(ctx, randomProduct(categories, tags))
		if err != nil {
			log.Fatalf("Failed to create product: %v", err)
		}

		for j := 0; j < rand.Intn(4); j++ {
			_, err := s.CreateReview(ctx, &domain.Review{
				ProductID: product.ID,
				Author:    gofakeit.Name(),
				Email:     gofakeit.Email(),
				Text:      gofakeit.Sentence(12),
				Rate:      1 + rand.Intn(5),
			})
			if err != nil {
				log.Fatalf("Failed to create review: %v", err)
			}
		}
	}

	fmt.Printf("Seeded %d categories, %d tags, %d products\n",
		len(categories), len(tags), *productCount)
}

// randomProduct builds one fake product with a category and a few tags.
func randomProduct(categories []domain.Category, tags []domain.Tag) *domain.Product {
	price := domain.MustMoney(
		fmt.Sprintf("%.2f", gofakeit.Price(3, 500)), *currency)

	productTags := make([]domain.Tag, 0, 2)
	for _, idx := range rand.Perm(len(tags))[:rand.Intn(3)] {
		productTags = append(productTags, tags[idx])
	}

	return &domain.Product{
		Title:           gofakeit.ProductName(),
		Description:     gofakeit.Sentence(8),
		FullDescription: gofakeit.Paragraph(2, 4, 10, " "),
		Price:           price,
		Stock:           rand.Intn(50),
		FreeDelivery:    rand.Intn(2) == 0,
		CategoryID:      categories[rand.Intn(len(categories))].ID,
		Tags:            productTags,
	}
}
