package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restify-pos/api/internal/enum"
)

// --- tables ---

const listTables = `SELECT id, number, status FROM tables ORDER BY number`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.Number, &t.Status); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTable = `SELECT id, number, status FROM tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, getTable, id).Scan(&t.ID, &t.Number, &t.Status)
	return t, err
}

const upsertTable = `
INSERT INTO tables (number, status) VALUES ($1, $2)
ON CONFLICT (number) DO UPDATE SET status = EXCLUDED.status
RETURNING id, number, status`

func (q *Queries) UpsertTable(ctx context.Context, arg UpsertTableParams) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, upsertTable, arg.Number, arg.Status).Scan(&t.ID, &t.Number, &t.Status)
	return t, err
}

// --- categories ---

const listCategories = `SELECT id, name, sort_order FROM categories ORDER BY sort_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const upsertCategory = `
INSERT INTO categories (name, sort_order) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET sort_order = EXCLUDED.sort_order
RETURNING id, name, sort_order`

func (q *Queries) UpsertCategory(ctx context.Context, arg UpsertCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, upsertCategory, arg.Name, arg.SortOrder).Scan(&c.ID, &c.Name, &c.SortOrder)
	return c, err
}

// --- products ---

const productColumns = `id, category_id, name, price, image, active`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p          Product
		categoryID pgtype.UUID
		price      pgtype.Numeric
		image      pgtype.Text
	)
	if err := row.Scan(&p.ID, &categoryID, &p.Name, &price, &image, &p.Active); err != nil {
		return Product{}, err
	}
	p.CategoryID = uuidPtr(categoryID)
	p.Price = NumericToDecimal(price)
	p.Image = textPtr(image)
	return p, nil
}

const listActiveProducts = `SELECT ` + productColumns + ` FROM products WHERE active = true ORDER BY name`

func (q *Queries) ListActiveProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listActiveProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const upsertProduct = `
INSERT INTO products (category_id, name, price, image, active) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    price = EXCLUDED.price,
    image = EXCLUDED.image,
    active = EXCLUDED.active
RETURNING ` + productColumns

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, upsertProduct,
		arg.CategoryID, arg.Name, DecimalToNumeric(arg.Price), arg.Image, arg.Active))
}

// --- orders ---

const orderColumns = `id, table_id, table_number, items, total, status, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o     Order
		items []byte
		total pgtype.Numeric
	)
	if err := row.Scan(&o.ID, &o.TableID, &o.TableNumber, &items, &total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order items: %w", err)
	}
	o.Total = NumericToDecimal(total)
	return o, nil
}

const createOrder = `
INSERT INTO orders (table_id, table_number, items, total, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	items, err := json.Marshal(arg.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.TableID, arg.TableNumber, items, DecimalToNumeric(arg.Total), arg.Status))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// ListOrders returns orders with the given status. Unknown sort keys fall back
// to creation order.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1`
	switch arg.Sort {
	case enum.SortUpdatedDesc:
		sql += ` ORDER BY updated_at DESC, id`
	default:
		sql += ` ORDER BY created_at ASC, id`
	}
	if arg.Limit > 0 {
		sql += ` LIMIT ` + strconv.Itoa(int(arg.Limit))
	}

	rows, err := q.db.Query(ctx, sql, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders SET status = $2
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.To, arg.From))
}
