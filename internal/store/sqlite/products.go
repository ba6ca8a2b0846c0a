package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/id"
	"github.com/meganoshop/megano-server/internal/store"
	"github.com/meganoshop/megano-server/internal/util"
)

const productColumns = `id, created_at, updated_at, title, description, full_description,
	price_amount, price_currency, stock, rating, free_delivery, category_id`

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	var p domain.Product

	var (
		createdAt    string
		updatedAt    string
		amount       string
		currencyCode string
		freeDelivery int
	)

	err := scanner.Scan(
		&p.ID,
		&createdAt,
		&updatedAt,
		&p.Title,
		&p.Description,
		&p.FullDescription,
		&amount,
		&currencyCode,
		&p.Stock,
		&p.Rating,
		&freeDelivery,
		&p.CategoryID,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	p.Price, err = domain.NewMoney(amount, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.FreeDelivery = freeDelivery != 0

	return &p, nil
}

// CreateCategory creates a category. Returns store.ErrAlreadyExists when
// the name is taken.
func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	categoryID, err := id.Generate("cat")
	if err != nil {
		return nil, fmt.Errorf("generate category ID: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`, categoryID, name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}

	return &domain.Category{ID: categoryID, Name: name}, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateTag creates a tag. The name is normalized to a canonical slug, so
// "Summer Sale" and "summer-sale" are the same tag. Returns
// store.ErrAlreadyExists when the slug is taken.
func (s *Store) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	slug := util.NormalizeTagSlug(name)
	if slug == "" {
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("tag name %q normalizes to nothing", name))
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, fmt.Errorf("generate tag ID: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tags (id, name) VALUES (?, ?)`, tagID, slug)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	return &domain.Tag{ID: tagID, Name: slug}, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateProduct inserts a product with its tags, images, and specifications
// in one transaction. The ID is generated here; the caller's Tags must carry
// existing tag IDs.
func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if code := p.Price.Currency.String(); code != s.currency {
		return nil, store.ErrInvalidInput.WithCause(
			fmt.Errorf("price currency %s does not match store currency %s", code, s.currency))
	}

	productID, err := id.Generate("prod")
	if err != nil {
		return nil, fmt.Errorf("generate product ID: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, created_at, updated_at, title, description, full_description,
			price_amount, price_currency, stock, rating, free_delivery, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		productID, now, now,
		p.Title, p.Description, p.FullDescription,
		p.Price.Amount.StringFixed(2), p.Price.Currency.String(),
		p.Stock, p.Rating, boolToInt(p.FreeDelivery), p.CategoryID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("unknown category %q", p.CategoryID))
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}

	for _, tag := range p.Tags {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_tags (product_id, tag_id) VALUES (?, ?)`, productID, tag.ID)
		if err != nil {
			return nil, fmt.Errorf("insert product tag: %w", err)
		}
	}

	for i, img := range p.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_images (product_id, sort_order, src, alt) VALUES (?, ?, ?, ?)`,
			productID, i, img.Src, img.Alt)
		if err != nil {
			return nil, fmt.Errorf("insert product image: %w", err)
		}
	}

	for _, spec := range p.Specifications {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO specifications (product_id, name, value) VALUES (?, ?, ?)`,
			productID, spec.Name, spec.Value)
		if err != nil {
			return nil, fmt.Errorf("insert specification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, productID)
}

// GetProduct returns a product with category, tags, images, specifications,
// and reviews attached. Returns store.ErrNotFound when absent.
func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, productID)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	var category domain.Category
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, p.CategoryID).
		Scan(&category.ID, &category.Name)
	if err != nil {
		return nil, fmt.Errorf("get product category: %w", err)
	}
	p.Category = &category

	p.Tags, err = s.listProductTags(ctx, productID)
	if err != nil {
		return nil, err
	}
	p.Images, err = s.listProductImages(ctx, productID)
	if err != nil {
		return nil, err
	}
	p.Specifications, err = s.listProductSpecifications(ctx, productID)
	if err != nil {
		return nil, err
	}
	p.Reviews, err = s.ListReviews(ctx, productID)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Store) listProductTags(ctx context.Context, productID string) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ?
		ORDER BY t.name`, productID)
	if err != nil {
		return nil, fmt.Errorf("list product tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) listProductImages(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT src, alt FROM product_images
		WHERE product_id = ? ORDER BY sort_order`, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	var images []domain.ProductImage
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.Src, &img.Alt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *Store) listProductSpecifications(ctx context.Context, productID string) ([]domain.Specification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value FROM specifications
		WHERE product_id = ? ORDER BY name`, productID)
	if err != nil {
		return nil, fmt.Errorf("list specifications: %w", err)
	}
	defer rows.Close()

	var specs []domain.Specification
	for rows.Next() {
		var spec domain.Specification
		if err := rows.Scan(&spec.Name, &spec.Value); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// ListProducts returns the filtered, ordered page of products plus the total
// count of matches before paging.
func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]domain.Product, int, error) {
	where, args := buildProductWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + prefixColumns("p", productColumns) + ` FROM products p` + where +
		productOrderClause(filter)
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func buildProductWhere(filter store.ProductFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if filter.Title != "" {
		clauses = append(clauses, "p.title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.CategoryID != "" {
		clauses = append(clauses, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Tag != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = p.id AND pt.tag_id = ?)")
		args = append(args, filter.Tag)
	}
	if filter.FreeDelivery != nil {
		clauses = append(clauses, "p.free_delivery = ?")
		args = append(args, boolToInt(*filter.FreeDelivery))
	}
	if filter.Available {
		clauses = append(clauses, "p.stock > 0")
	}
	if filter.MinPrice != "" {
		clauses = append(clauses, "CAST(p.price_amount AS REAL) >= CAST(? AS REAL)")
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice != "" {
		clauses = append(clauses, "CAST(p.price_amount AS REAL) <= CAST(? AS REAL)")
		args = append(args, filter.MaxPrice)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func productOrderClause(filter store.ProductFilter) string {
	var column string
	switch filter.Sort {
	case store.SortByPrice:
		column = "CAST(p.price_amount AS REAL)"
	case store.SortByRating:
		column = "p.rating"
	case store.SortByReviews:
		column = "(SELECT COUNT(*) FROM reviews r WHERE r.product_id = p.id)"
	default:
		column = "p.created_at"
	}

	direction := " ASC"
	if filter.Descending {
		direction = " DESC"
	}
	// Tie-break on ID so paging is stable.
	return " ORDER BY " + column + direction + ", p.id"
}

// prefixColumns qualifies each column in a comma-separated list with a table
// alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// SetProductStock overwrites the stock level of a product.
func (s *Store) SetProductStock(ctx context.Context, productID string, stock int) error {
	if stock < 0 {
		return store.ErrInvalidInput.WithCause(fmt.Errorf("negative stock %d", stock))
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`,
		stock, formatTime(time.Now()), productID)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateReview inserts a review and recomputes the product's rating as the
// mean of all its review rates, inside one transaction. Returns the
// product's reviews including the new one.
func (s *Store) CreateReview(ctx context.Context, review *domain.Review) ([]domain.Review, error) {
	reviewID, err := id.Generate("rev")
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE id = ?`, review.ProductID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if exists == 0 {
		return nil, store.ErrProductNotFound
	}

	createdAt := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, author, email, text, rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reviewID, review.ProductID, review.Author, review.Email, review.Text,
		review.Rate, formatTime(createdAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	reviews, err := s.listReviews(ctx, tx, review.ProductID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET rating = ?, updated_at = ? WHERE id = ?`,
		domain.RecalculateRating(reviews), formatTime(createdAt), review.ProductID)
	if err != nil {
		return nil, fmt.Errorf("update product rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListReviews returns a product's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.listReviews(ctx, s.db, productID)
}

func (s *Store) listReviews(ctx context.Context, q querier, productID string) ([]domain.Review, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, author, email, text, rate, created_at
		FROM reviews WHERE product_id = ?
		ORDER BY created_at DESC, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var (
			r         domain.Review
			createdAt string
		)
		err := rows.Scan(&r.ID, &r.ProductID, &r.Author, &r.Email, &r.Text, &r.Rate, &createdAt)
		if err != nil {
			return nil, err
		}
		r.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
