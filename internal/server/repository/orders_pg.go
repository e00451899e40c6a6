package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-foh/internal/domain"
)

type OrdersRepository struct {
	pool *pgxpool.Pool
}

func NewOrdersRepository(pool *pgxpool.Pool) *OrdersRepository {
	return &OrdersRepository{pool: pool}
}

func (r *OrdersRepository) RecipeByID(ctx context.Context, id int64) (domain.Recipe, error) {
	var rec domain.Recipe
	err := r.pool.QueryRow(ctx, `
		SELECT r.id, r.name, r.price, r.preparation_time, r.group_id, COALESCE(g.name, '')
		FROM recipes r LEFT JOIN recipe_groups g ON g.id = r.group_id
		WHERE r.id = $1
	`, id).Scan(&rec.ID, &rec.Name, &rec.Price, &rec.PreparationTime, &rec.GroupID, &rec.GroupName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Recipe{}, fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	return rec, nil
}

func (r *OrdersRepository) CreateOrderTx(ctx context.Context, req domain.CreateOrderRequest, items []NewItem) (domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (table_id, waiter_name, customer_name, party_size, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.TableID, req.WaiterName, req.CustomerName, req.PartySize, domain.OrderCreated).Scan(&orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items
			    (order_id, recipe_id, quantity, unit_price, total_price, container_price, is_takeaway, notes, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, orderID, it.RecipeID, it.Quantity, it.UnitPrice, it.TotalPrice, it.ContainerPrice, it.IsTakeaway, it.Notes, domain.ItemCreated); err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return r.OrderByID(ctx, orderID)
}

func (r *OrdersRepository) AddItem(ctx context.Context, orderID int64, it NewItem) (domain.OrderItem, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO order_items
		    (order_id, recipe_id, quantity, unit_price, total_price, container_price, is_takeaway, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, orderID, it.RecipeID, it.Quantity, it.UnitPrice, it.TotalPrice, it.ContainerPrice, it.IsTakeaway, it.Notes, domain.ItemCreated).Scan(&id)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("insert order item: %w", err)
	}
	return r.ItemByID(ctx, id)
}

const itemColumns = `
	i.id, i.order_id, i.recipe_id, r.name, i.quantity, i.unit_price, i.total_price,
	i.container_price, i.is_takeaway, i.notes, i.status, i.created_at, i.preparing_at,
	i.cancellation_reason`

func scanItem(row pgx.Row) (domain.OrderItem, error) {
	var it domain.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.RecipeID, &it.RecipeName, &it.Quantity,
		&it.UnitPrice, &it.TotalPrice, &it.ContainerPrice, &it.IsTakeaway, &it.Notes,
		&it.Status, &it.CreatedAt, &it.PreparingAt, &it.CancellationReason)
	return it, err
}

func (r *OrdersRepository) ItemByID(ctx context.Context, id int64) (domain.OrderItem, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM order_items i JOIN recipes r ON r.id = i.recipe_id
		WHERE i.id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("get order item: %w", err)
	}
	return it, nil
}

func (r *OrdersRepository) SetItemStatus(ctx context.Context, id int64, status domain.OrderItemStatus) (domain.OrderItem, error) {
	// preparing_at is stamped exactly once, on first entry to PREPARING
	tag, err := r.pool.Exec(ctx, `
		UPDATE order_items
		SET status = $2,
		    preparing_at = CASE WHEN $2 = 'PREPARING' AND preparing_at IS NULL THEN now() ELSE preparing_at END
		WHERE id = $1
	`, id, status)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("update item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", id, ErrNotFound)
	}
	return r.ItemByID(ctx, id)
}

func (r *OrdersRepository) CancelItem(ctx context.Context, id int64, reason string) (domain.OrderItem, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE order_items SET status = $2, cancellation_reason = $3 WHERE id = $1
	`, id, domain.ItemCanceled, reason)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("cancel item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", id, ErrNotFound)
	}
	return r.ItemByID(ctx, id)
}

func (r *OrdersRepository) OrderByID(ctx context.Context, id int64) (domain.Order, error) {
	o, err := r.scanOrderHead(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrdersRepository) scanOrderHead(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.table_id, t.name, t.zone, o.waiter_name, o.customer_name,
		       o.party_size, o.status, o.created_at
		FROM orders o JOIN tables t ON t.id = o.table_id
		WHERE o.id = $1
	`, id).Scan(&o.ID, &o.TableID, &o.TableName, &o.Zone, &o.WaiterName,
		&o.CustomerName, &o.PartySize, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrdersRepository) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM order_items i JOIN recipes r ON r.id = i.recipe_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
		if it.Status != domain.ItemCanceled {
			o.Total += it.TotalPrice
		}
	}
	o.GrandTotal = o.Total
	return rows.Err()
}

func (r *OrdersRepository) ListOrders(ctx context.Context, status string) ([]domain.Order, error) {
	query := `SELECT o.id FROM orders o`
	args := []any{}
	if status != "" {
		query += ` WHERE o.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY o.id DESC`
	return r.ordersByQuery(ctx, query, args...)
}

func (r *OrdersRepository) ActiveOrdersForTable(ctx context.Context, tableID int64) ([]domain.Order, error) {
	return r.ordersByQuery(ctx, `
		SELECT o.id FROM orders o
		WHERE o.table_id = $1 AND o.status IN ('CREATED', 'PREPARING')
		ORDER BY o.id
	`, tableID)
}

func (r *OrdersRepository) ordersByQuery(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.OrderByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrdersRepository) CloseOrderTx(ctx context.Context, orderID int64) (domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// lock the items so a racing append or transition settles before the check
	rows, err := tx.Query(ctx, `
		SELECT status FROM order_items WHERE order_id = $1 FOR UPDATE
	`, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock items: %w", err)
	}
	var statuses []domain.OrderItemStatus
	for rows.Next() {
		var s domain.OrderItemStatus
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return domain.Order{}, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}

	active := 0
	for _, s := range statuses {
		if s == domain.ItemCanceled {
			continue
		}
		active++
		if s != domain.ItemPreparing {
			return domain.Order{}, ErrPreconditionFailed
		}
	}
	if active == 0 {
		return domain.Order{}, ErrPreconditionFailed
	}

	if _, err := tx.Exec(ctx, `
		UPDATE order_items SET status = $2 WHERE order_id = $1 AND status = $3
	`, orderID, domain.ItemServed, domain.ItemPreparing); err != nil {
		return domain.Order{}, fmt.Errorf("serve items: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
	`, orderID, domain.OrderServed)
	if err != nil {
		return domain.Order{}, fmt.Errorf("close order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return r.OrderByID(ctx, orderID)
}

func (r *OrdersRepository) SetOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, reason string) (domain.Order, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $2, cancellation_reason = NULLIF($3, ''), updated_at = now()
		WHERE id = $1
	`, orderID, status, reason)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if status == domain.OrderCanceled {
		if _, err := r.pool.Exec(ctx, `
			UPDATE order_items SET status = $2, cancellation_reason = $3
			WHERE order_id = $1 AND status IN ('CREATED', 'PREPARING')
		`, orderID, domain.ItemCanceled, reason); err != nil {
			return domain.Order{}, fmt.Errorf("cancel order items: %w", err)
		}
	}
	return r.OrderByID(ctx, orderID)
}

func (r *OrdersRepository) Board(ctx context.Context) ([]domain.BoardRecipe, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.group_id, COALESCE(g.name, ''), r.preparation_time,
		       i.id, i.order_id, t.zone, t.name, o.waiter_name, i.quantity, i.is_takeaway,
		       i.notes, i.status,
		       to_char(i.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
		       COALESCE(to_char(i.preparing_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), '')
		FROM order_items i
		JOIN recipes r ON r.id = i.recipe_id
		LEFT JOIN recipe_groups g ON g.id = r.group_id
		JOIN orders o ON o.id = i.order_id
		JOIN tables t ON t.id = o.table_id
		WHERE i.status IN ('CREATED', 'PREPARING')
		  AND o.status IN ('CREATED', 'PREPARING')
		ORDER BY r.id, i.created_at, i.id
	`)
	if err != nil {
		return nil, fmt.Errorf("board query: %w", err)
	}
	defer rows.Close()

	var out []domain.BoardRecipe
	index := map[int64]int{}
	for rows.Next() {
		var (
			rec  domain.BoardRecipe
			item domain.BoardItem
		)
		if err := rows.Scan(&rec.RecipeID, &rec.RecipeName, &rec.RecipeGroupID, &rec.RecipeGroupName,
			&rec.PreparationTime, &item.ID, &item.OrderID, &item.OrderZone, &item.OrderTable,
			&item.WaiterName, &item.Quantity, &item.IsTakeaway, &item.Notes, &item.Status,
			&item.CreatedAt, &item.PreparingAt); err != nil {
			return nil, fmt.Errorf("scan board row: %w", err)
		}
		if item.Notes != "" {
			item.CustomizationsCount = 1
		}
		i, ok := index[rec.RecipeID]
		if !ok {
			i = len(out)
			index[rec.RecipeID] = i
			out = append(out, rec)
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out, rows.Err()
}

func (r *OrdersRepository) Tables(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.zone, t.name, t.seats,
		       EXISTS (
		           SELECT 1 FROM orders o
		           WHERE o.table_id = t.id AND o.status IN ('CREATED', 'PREPARING')
		       ) AS occupied
		FROM tables t
		ORDER BY t.zone, t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.Zone, &t.Name, &t.Seats, &t.Occupied); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
