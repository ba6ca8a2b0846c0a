package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/id"
	"github.com/meganoshop/megano-server/internal/store"
)

const orderColumns = `id, user_id, created_at, updated_at, full_name, email, phone,
	delivery_type, payment_type, city, address, total_amount, total_currency,
	status, is_paid, is_confirmed`

func scanOrder(scanner interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	var o domain.Order

	var (
		createdAt    string
		updatedAt    string
		deliveryType sql.NullString
		paymentType  sql.NullString
		city         sql.NullString
		address      sql.NullString
		amount       string
		currencyCode string
		isPaid       int
		isConfirmed  int
	)

	err := scanner.Scan(
		&o.ID,
		&o.UserID,
		&createdAt,
		&updatedAt,
		&o.FullName,
		&o.Email,
		&o.Phone,
		&deliveryType,
		&paymentType,
		&city,
		&address,
		&amount,
		&currencyCode,
		&o.Status,
		&isPaid,
		&isConfirmed,
	)
	if err != nil {
		return nil, err
	}

	o.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	o.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if deliveryType.Valid {
		o.DeliveryType = domain.DeliveryType(deliveryType.String)
	}
	if paymentType.Valid {
		o.PaymentType = paymentType.String
	}
	if city.Valid {
		o.City = city.String
	}
	if address.Valid {
		o.Address = address.String
	}

	o.TotalCost, err = domain.NewMoney(amount, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	o.IsPaid = isPaid != 0
	o.IsConfirmed = isConfirmed != 0

	return &o, nil
}

// CreateOrder inserts an order snapshot with its lines in one transaction.
// The order and line IDs are generated here; Status starts as new.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	orderID, err := id.Generate("order")
	if err != nil {
		return nil, fmt.Errorf("generate order ID: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, created_at, updated_at, full_name, email, phone,
			delivery_type, payment_type, city, address, total_amount, total_currency,
			status, is_paid, is_confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		orderID, o.UserID, now, now, o.FullName, o.Email, o.Phone,
		nullString(string(o.DeliveryType)), nullString(o.PaymentType),
		nullString(o.City), nullString(o.Address),
		o.TotalCost.Amount.StringFixed(2), o.TotalCost.Currency.String(),
		string(domain.OrderStatusNew),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if err := insertOrderLines(ctx, tx, orderID, o.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

func insertOrderLines(ctx context.Context, tx *sql.Tx, orderID string, lines []domain.OrderLine) error {
	for _, line := range lines {
		lineID, err := id.Generate("oline")
		if err != nil {
			return fmt.Errorf("generate order line ID: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, title, quantity, price_amount, price_currency)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			lineID, orderID, line.ProductID, line.Title, line.Quantity,
			line.Price.Amount.StringFixed(2), line.Price.Currency.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

// ReplaceOrderSnapshot overwrites an open order's contact fields, total, and
// lines with a fresh checkout snapshot. Confirmed orders are immutable;
// replacing one returns store.ErrInvalidInput.
func (s *Store) ReplaceOrderSnapshot(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var isConfirmed int
	err = tx.QueryRowContext(ctx,
		`SELECT is_confirmed FROM orders WHERE id = ?`, o.ID).Scan(&isConfirmed)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if isConfirmed != 0 {
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("order %s already confirmed", o.ID))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET updated_at = ?, full_name = ?, email = ?, phone = ?,
			total_amount = ?, total_currency = ?
		WHERE id = ?`,
		formatTime(time.Now()), o.FullName, o.Email, o.Phone,
		o.TotalCost.Amount.StringFixed(2), o.TotalCost.Currency.String(), o.ID)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, o.ID); err != nil {
		return nil, fmt.Errorf("delete order lines: %w", err)
	}
	if err := insertOrderLines(ctx, tx, o.ID, o.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, o.ID)
}

// GetOrder returns an order with its lines. Returns store.ErrNotFound when
// absent.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	o.Lines, err = s.listOrderLines(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetOpenOrder returns the user's newest unconfirmed order, with lines.
// Returns store.ErrNotFound when the user has none; checkout then creates a
// fresh snapshot instead of reusing one.
func (s *Store) GetOpenOrder(ctx context.Context, userID string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = ? AND is_confirmed = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get open order: %w", err)
	}

	o.Lines, err = s.listOrderLines(ctx, s.db, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns a user's orders, newest first, each with its lines.
func (s *Store) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Lines, err = s.listOrderLines(ctx, s.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *Store) listOrderLines(ctx context.Context, q querier, orderID string) ([]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, title, quantity, price_amount, price_currency
		FROM order_lines WHERE order_id = ?
		ORDER BY product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		var (
			line         domain.OrderLine
			amount       string
			currencyCode string
		)
		err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Title,
			&line.Quantity, &amount, &currencyCode)
		if err != nil {
			return nil, err
		}
		line.Price, err = domain.NewMoney(amount, currencyCode)
		if err != nil {
			return nil, fmt.Errorf("order line %s price: %w", line.ID, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ConfirmOrder finalizes an open order in a single transaction: the
// delivery and payment details are written, each line's quantity is
// subtracted from its product's stock (never below zero), the user's basket
// is emptied, and the order moves to accepted. Confirming an already
// confirmed order returns store.ErrInvalidInput.
func (s *Store) ConfirmOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var isConfirmed int
	err = tx.QueryRowContext(ctx,
		`SELECT is_confirmed FROM orders WHERE id = ?`, o.ID).Scan(&isConfirmed)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if isConfirmed != 0 {
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("order %s already confirmed", o.ID))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET updated_at = ?, full_name = ?, email = ?, phone = ?,
			delivery_type = ?, payment_type = ?, city = ?, address = ?,
			total_amount = ?, total_currency = ?, status = ?, is_confirmed = 1
		WHERE id = ?`,
		formatTime(time.Now()), o.FullName, o.Email, o.Phone,
		nullString(string(o.DeliveryType)), nullString(o.PaymentType),
		nullString(o.City), nullString(o.Address),
		o.TotalCost.Amount.StringFixed(2), o.TotalCost.Currency.String(),
		string(domain.OrderStatusAccepted), o.ID)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	lines, err := s.listOrderLines(ctx, tx, o.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		_, err = tx.ExecContext(ctx, `
			UPDATE products SET stock = MAX(0, stock - ?), updated_at = ?
			WHERE id = ?`,
			line.Quantity, formatTime(time.Now()), line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", line.ProductID, err)
		}
	}

	// The basket served its purpose once the order is placed.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM basket_lines WHERE basket_id IN
			(SELECT id FROM baskets WHERE user_id = ?)`, o.UserID)
	if err != nil {
		return nil, fmt.Errorf("clear basket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, o.ID)
}

// MarkOrderPaid flips the paid flag after a successful payment.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID string) (*domain.Order, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET is_paid = 1, updated_at = ? WHERE id = ? AND is_confirmed = 1`,
		formatTime(time.Now()), orderID)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Either the order doesn't exist or it was never confirmed.
		if _, getErr := s.GetOrder(ctx, orderID); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("order %s not confirmed", orderID))
	}

	return s.GetOrder(ctx, orderID)
}
