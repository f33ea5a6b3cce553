package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ── Inventory ──

func scanInventory(row pgx.Row) (Inventory, error) {
	var i Inventory
	err := row.Scan(&i.ID, &i.Name, &i.Amount)
	return i, err
}

func (q *Queries) ListInventory(ctx context.Context) ([]Inventory, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, amount FROM inventory ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInventory)
}

func (q *Queries) GetInventory(ctx context.Context, id int64) (Inventory, error) {
	return scanInventory(q.db.QueryRow(ctx, `SELECT id, name, amount FROM inventory WHERE id = $1`, id))
}

func (q *Queries) CreateInventory(ctx context.Context, name string, amount int32) (Inventory, error) {
	return scanInventory(q.db.QueryRow(ctx,
		`INSERT INTO inventory (name, amount) VALUES ($1, $2) RETURNING id, name, amount`, name, amount))
}

func (q *Queries) UpdateInventory(ctx context.Context, id int64, name string, amount int32) (Inventory, error) {
	return scanInventory(q.db.QueryRow(ctx,
		`UPDATE inventory SET name = $2, amount = $3 WHERE id = $1 RETURNING id, name, amount`, id, name, amount))
}

func (q *Queries) DeleteInventory(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, `DELETE FROM inventory WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

func scanInventoryInOrder(row pgx.Row) (InventoryInOrder, error) {
	var i InventoryInOrder
	err := row.Scan(&i.ID, &i.OrderID, &i.InventoryID, &i.Amount)
	return i, err
}

func (q *Queries) CreateInventoryInOrder(ctx context.Context, orderID, inventoryID int64, amount int32) (InventoryInOrder, error) {
	return scanInventoryInOrder(q.db.QueryRow(ctx,
		`INSERT INTO inventory_in_orders (order_id, inventory_id, amount) VALUES ($1, $2, $3)
		 RETURNING id, order_id, inventory_id, amount`, orderID, inventoryID, amount))
}

func (q *Queries) ListInventoryInOrder(ctx context.Context, orderID int64) ([]InventoryInOrder, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, inventory_id, amount FROM inventory_in_orders WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanInventoryInOrder)
}

// ── Cleansers ──

const cleanserColumns = `id, name, description, unit, price, amount`

func scanCleanser(row pgx.Row) (Cleanser, error) {
	var i Cleanser
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.Unit, &i.Price, &i.Amount)
	return i, err
}

func (q *Queries) ListCleansers(ctx context.Context) ([]Cleanser, error) {
	rows, err := q.db.Query(ctx, `SELECT `+cleanserColumns+` FROM cleansers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCleanser)
}

func (q *Queries) GetCleanser(ctx context.Context, id int64) (Cleanser, error) {
	return scanCleanser(q.db.QueryRow(ctx, `SELECT `+cleanserColumns+` FROM cleansers WHERE id = $1`, id))
}

type CleanserParams struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Amount      int32           `json:"amount"`
}

const createCleanser = `INSERT INTO cleansers (name, description, unit, price, amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + cleanserColumns

func (q *Queries) CreateCleanser(ctx context.Context, arg CleanserParams) (Cleanser, error) {
	return scanCleanser(q.db.QueryRow(ctx, createCleanser, arg.Name, arg.Description, arg.Unit, arg.Price, arg.Amount))
}

const updateCleanser = `UPDATE cleansers SET name = $2, description = $3, unit = $4, price = $5, amount = $6
WHERE id = $1
RETURNING ` + cleanserColumns

func (q *Queries) UpdateCleanser(ctx context.Context, arg CleanserParams) (Cleanser, error) {
	return scanCleanser(q.db.QueryRow(ctx, updateCleanser, arg.ID, arg.Name, arg.Description, arg.Unit, arg.Price, arg.Amount))
}

func (q *Queries) DeleteCleanser(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, `DELETE FROM cleansers WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// ConsumeCleanser decrements stock; pgx.ErrNoRows means the cleanser is
// missing or has less than amount left.
const consumeCleanser = `UPDATE cleansers SET amount = amount - $2
WHERE id = $1 AND amount >= $2
RETURNING ` + cleanserColumns

func (q *Queries) ConsumeCleanser(ctx context.Context, id int64, amount int32) (Cleanser, error) {
	return scanCleanser(q.db.QueryRow(ctx, consumeCleanser, id, amount))
}

func scanCleanserInOrder(row pgx.Row) (CleanserInOrder, error) {
	var i CleanserInOrder
	err := row.Scan(&i.ID, &i.OrderID, &i.CleanserID, &i.Amount)
	return i, err
}

func (q *Queries) CreateCleanserInOrder(ctx context.Context, orderID, cleanserID int64, amount int32) (CleanserInOrder, error) {
	return scanCleanserInOrder(q.db.QueryRow(ctx,
		`INSERT INTO cleanser_in_orders (order_id, cleanser_id, amount) VALUES ($1, $2, $3)
		 RETURNING id, order_id, cleanser_id, amount`, orderID, cleanserID, amount))
}

func (q *Queries) ListCleansersInOrder(ctx context.Context, orderID int64) ([]CleanserInOrder, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, cleanser_id, amount FROM cleanser_in_orders WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCleanserInOrder)
}
