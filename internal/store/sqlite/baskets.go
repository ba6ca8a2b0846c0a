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
)

// querier is satisfied by both *sql.DB and *sql.Tx so basket reads can run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// basketColumns is the ordered list of columns selected in basket queries.
// Must match the scan order in scanBasket.
const basketColumns = `id, created_at, updated_at, user_id, anonymous_token`

// scanBasket scans a sql.Row (or sql.Rows via its Scan method) into a domain.Basket.
func scanBasket(scanner interface{ Scan(dest ...any) error }) (*domain.Basket, error) {
	var b domain.Basket

	var (
		createdAt string
		updatedAt string
		userID    sql.NullString
		token     sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&userID,
		&token,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		b.UserID = userID.String
	}
	if token.Valid {
		b.AnonymousToken = token.String
	}

	return &b, nil
}

// GetOrCreateBasket returns the basket for the given identity, creating an
// empty one if none exists. Creation is idempotent: racing a concurrent
// insert under the same key returns the existing basket instead of a
// duplicate-key error.
func (s *Store) GetOrCreateBasket(ctx context.Context, identity domain.BasketIdentity) (*domain.Basket, error) {
	basket, err := s.getBasketByIdentity(ctx, s.db, identity)
	if err == nil {
		return basket, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get basket: %w", err)
	}

	if err := insertBasket(ctx, s.db, identity); err != nil {
		// Lost a race with a concurrent create under the same key.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			basket, getErr := s.getBasketByIdentity(ctx, s.db, identity)
			if getErr != nil {
				return nil, fmt.Errorf("get basket after race: %w", getErr)
			}
			return basket, nil
		}
		return nil, err
	}

	basket, err = s.getBasketByIdentity(ctx, s.db, identity)
	if err != nil {
		return nil, fmt.Errorf("reload basket: %w", err)
	}
	return basket, nil
}

// getOrCreateBasketTx is GetOrCreateBasket within an open transaction; the
// transaction serializes writers, so no race recovery is needed.
func (s *Store) getOrCreateBasketTx(ctx context.Context, tx *sql.Tx, identity domain.BasketIdentity) (*domain.Basket, error) {
	basket, err := s.getBasketByIdentity(ctx, tx, identity)
	if err == nil {
		return basket, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get basket: %w", err)
	}

	if err := insertBasket(ctx, tx, identity); err != nil {
		return nil, err
	}

	basket, err = s.getBasketByIdentity(ctx, tx, identity)
	if err != nil {
		return nil, fmt.Errorf("reload basket: %w", err)
	}
	return basket, nil
}

// insertBasket creates an empty basket row for the identity.
func insertBasket(ctx context.Context, q querier, identity domain.BasketIdentity) error {
	basketID, err := id.Generate("bskt")
	if err != nil {
		return fmt.Errorf("generate basket ID: %w", err)
	}

	now := formatTime(time.Now())
	var userID, token sql.NullString
	switch identity.Kind {
	case domain.IdentityUser:
		userID = nullString(identity.Key)
	case domain.IdentityAnonymous:
		token = nullString(identity.Key)
	default:
		return store.ErrInvalidInput.WithCause(fmt.Errorf("unknown identity kind %q", identity.Kind))
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO baskets (id, created_at, updated_at, user_id, anonymous_token)
		VALUES (?, ?, ?, ?, ?)`,
		basketID, now, now, userID, token,
	)
	if err != nil {
		return fmt.Errorf("insert basket: %w", err)
	}
	return nil
}

// getBasketByIdentity looks up a basket by its identity key.
// Returns sql.ErrNoRows when absent.
func (s *Store) getBasketByIdentity(ctx context.Context, q querier, identity domain.BasketIdentity) (*domain.Basket, error) {
	var row *sql.Row
	if identity.Kind == domain.IdentityUser {
		row = q.QueryRowContext(ctx,
			`SELECT `+basketColumns+` FROM baskets WHERE user_id = ?`, identity.Key)
	} else {
		row = q.QueryRowContext(ctx,
			`SELECT `+basketColumns+` FROM baskets WHERE anonymous_token = ?`, identity.Key)
	}
	return scanBasket(row)
}

// ListBasketItems returns the basket's contents joined with product data,
// ordered by product ID so unchanged baskets serialize identically.
func (s *Store) ListBasketItems(ctx context.Context, basketID string) ([]domain.BasketItem, error) {
	return s.listBasketItems(ctx, s.db, basketID)
}

func (s *Store) listBasketItems(ctx context.Context, q querier, basketID string) ([]domain.BasketItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.title, p.description, p.price_amount, p.price_currency,
		       p.free_delivery, p.rating, l.quantity
		FROM basket_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.basket_id = ?
		ORDER BY p.id`, basketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.BasketItem{}
	for rows.Next() {
		var (
			item         domain.BasketItem
			amount       string
			currencyCode string
			freeDelivery int
		)
		err := rows.Scan(
			&item.ProductID,
			&item.Title,
			&item.Description,
			&amount,
			&currencyCode,
			&freeDelivery,
			&item.Rating,
			&item.Quantity,
		)
		if err != nil {
			return nil, err
		}

		item.Price, err = domain.NewMoney(amount, currencyCode)
		if err != nil {
			return nil, fmt.Errorf("product %s price: %w", item.ProductID, err)
		}
		item.FreeDelivery = freeDelivery != 0

		items = append(items, item)
	}
	return items, rows.Err()
}

// AddQuantity applies a non-negative quantity delta to the basket's line for
// the product, creating the line on first add. The resulting quantity is
// clamped to the product's stock; the clamp caps silently rather than
// erroring. Returns the full basket contents.
//
// Returns store.ErrProductNotFound if the product does not exist and
// store.ErrInvalidInput on a negative delta.
func (s *Store) AddQuantity(ctx context.Context, basketID, productID string, delta int) ([]domain.BasketItem, error) {
	if delta < 0 {
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("negative delta %d", delta))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&stock)
	if err == sql.ErrNoRows {
		return nil, store.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product stock: %w", err)
	}

	var (
		lineID   string
		quantity int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, quantity FROM basket_lines WHERE basket_id = ? AND product_id = ?`,
		basketID, productID).Scan(&lineID, &quantity)
	switch {
	case err == sql.ErrNoRows:
		// First add of this product: the line starts at zero.
		quantity = 0
	case err != nil:
		return nil, fmt.Errorf("load basket line: %w", err)
	}

	newQuantity := quantity + delta
	if newQuantity > stock {
		newQuantity = stock
	}

	switch {
	case lineID == "" && newQuantity > 0:
		lineID, err = id.Generate("line")
		if err != nil {
			return nil, fmt.Errorf("generate line ID: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO basket_lines (id, basket_id, product_id, quantity)
			VALUES (?, ?, ?, ?)`,
			lineID, basketID, productID, newQuantity,
		)
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return nil, store.ErrProductNotFound
			}
			return nil, fmt.Errorf("insert basket line: %w", err)
		}
	case lineID != "" && newQuantity != quantity:
		_, err = tx.ExecContext(ctx,
			`UPDATE basket_lines SET quantity = ? WHERE id = ?`, newQuantity, lineID)
		if err != nil {
			return nil, fmt.Errorf("update basket line: %w", err)
		}
	}

	items, err := s.listBasketItems(ctx, tx, basketID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveQuantity subtracts a non-negative quantity delta from the basket's
// line for the product. Removing at least the current quantity deletes the
// line entirely; the quantity never goes negative. Returns the full basket
// contents.
//
// Returns store.ErrLineNotFound if the basket has no line for the product
// and store.ErrInvalidInput on a negative delta.
func (s *Store) RemoveQuantity(ctx context.Context, basketID, productID string, delta int) ([]domain.BasketItem, error) {
	if delta < 0 {
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("negative delta %d", delta))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		lineID   string
		quantity int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, quantity FROM basket_lines WHERE basket_id = ? AND product_id = ?`,
		basketID, productID).Scan(&lineID, &quantity)
	if err == sql.ErrNoRows {
		return nil, store.ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load basket line: %w", err)
	}

	if quantity <= delta {
		_, err = tx.ExecContext(ctx, `DELETE FROM basket_lines WHERE id = ?`, lineID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE basket_lines SET quantity = ? WHERE id = ?`, quantity-delta, lineID)
	}
	if err != nil {
		return nil, fmt.Errorf("apply basket line removal: %w", err)
	}

	items, err := s.listBasketItems(ctx, tx, basketID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

// mergeBasketsTx reconciles an anonymous basket into the user's basket at
// login, within the caller's transaction:
//
//  1. The user's basket is created if it doesn't exist.
//  2. If the user's basket is empty, the anonymous basket's lines are
//     re-pointed to it (a move, preserving quantities exactly).
//  3. If the user's basket already has lines, the anonymous lines are
//     discarded, not merged item by item.
//  4. The anonymous basket row is deleted unconditionally.
//
// An empty anonymousToken, or a token with no basket, means nothing to
// merge; the user's basket is returned as-is. Runs inside the login
// transaction (see CreateLoginSession) so a failed login leaves the
// anonymous basket untouched.
func (s *Store) mergeBasketsTx(ctx context.Context, tx *sql.Tx, userID, anonymousToken string) (*domain.Basket, error) {
	userBasket, err := s.getOrCreateBasketTx(ctx, tx, domain.BasketIdentity{
		Kind: domain.IdentityUser,
		Key:  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve user basket: %w", err)
	}

	if anonymousToken == "" {
		return userBasket, nil
	}

	anonBasket, err := s.getBasketByIdentity(ctx, tx, domain.BasketIdentity{
		Kind: domain.IdentityAnonymous,
		Key:  anonymousToken,
	})
	if err == sql.ErrNoRows {
		// Nothing to merge.
		return userBasket, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load anonymous basket: %w", err)
	}

	var userLines int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM basket_lines WHERE basket_id = ?`, userBasket.ID).Scan(&userLines)
	if err != nil {
		return nil, fmt.Errorf("count user basket lines: %w", err)
	}

	if userLines == 0 {
		// Transfer: re-point the anonymous lines. No duplicates are
		// possible because the user basket holds no lines.
		_, err = tx.ExecContext(ctx,
			`UPDATE basket_lines SET basket_id = ? WHERE basket_id = ?`,
			userBasket.ID, anonBasket.ID)
		if err != nil {
			return nil, fmt.Errorf("transfer basket lines: %w", err)
		}
	} else {
		// Discard-on-conflict: the anonymous contents are dropped whole.
		_, err = tx.ExecContext(ctx,
			`DELETE FROM basket_lines WHERE basket_id = ?`, anonBasket.ID)
		if err != nil {
			return nil, fmt.Errorf("discard anonymous lines: %w", err)
		}
	}

	// The anonymous basket is gone either way once a user identity exists.
	_, err = tx.ExecContext(ctx, `DELETE FROM baskets WHERE id = ?`, anonBasket.ID)
	if err != nil {
		return nil, fmt.Errorf("delete anonymous basket: %w", err)
	}

	return userBasket, nil
}

// ClearBasketLines deletes all lines from a basket, leaving the basket row.
func (s *Store) ClearBasketLines(ctx context.Context, basketID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM basket_lines WHERE basket_id = ?`, basketID)
	if err != nil {
		return fmt.Errorf("clear basket lines: %w", err)
	}
	return nil
}

// DeleteBasket removes a basket and its lines. The line delete is explicit
// and runs in the same transaction as the basket delete.
func (s *Store) DeleteBasket(ctx context.Context, basketID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM basket_lines WHERE basket_id = ?`, basketID); err != nil {
		return fmt.Errorf("delete basket lines: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM baskets WHERE id = ?`, basketID)
	if err != nil {
		return fmt.Errorf("delete basket: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}
