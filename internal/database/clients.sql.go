package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const clientColumns = `id, first_name, last_name, phone, created_at`

func scanClient(row pgx.Row) (Client, error) {
	var i Client
	err := row.Scan(&i.ID, &i.FirstName, &i.LastName, &i.Phone, &i.CreatedAt)
	return i, err
}

const createClient = `INSERT INTO clients (first_name, last_name, phone)
VALUES ($1, $2, $3)
RETURNING ` + clientColumns

type CreateClientParams struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	return scanClient(q.db.QueryRow(ctx, createClient, arg.FirstName, arg.LastName, arg.Phone))
}

const getClient = `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

func (q *Queries) GetClient(ctx context.Context, id int64) (Client, error) {
	return scanClient(q.db.QueryRow(ctx, getClient, id))
}

const getClientByPhone = `SELECT ` + clientColumns + ` FROM clients WHERE phone = $1`

func (q *Queries) GetClientByPhone(ctx context.Context, phone string) (Client, error) {
	return scanClient(q.db.QueryRow(ctx, getClientByPhone, phone))
}

const listClients = `SELECT ` + clientColumns + ` FROM clients
WHERE ($1::text IS NULL OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
ORDER BY last_name, first_name
LIMIT $2 OFFSET $3`

type ListClientsParams struct {
	Search pgtype.Text `json:"search"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListClients(ctx context.Context, arg ListClientsParams) ([]Client, error) {
	rows, err := q.db.Query(ctx, listClients, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanClient)
}

const updateClient = `UPDATE clients SET first_name = $2, last_name = $3, phone = $4
WHERE id = $1
RETURNING ` + clientColumns

type UpdateClientParams struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (q *Queries) UpdateClient(ctx context.Context, arg UpdateClientParams) (Client, error) {
	return scanClient(q.db.QueryRow(ctx, updateClient, arg.ID, arg.FirstName, arg.LastName, arg.Phone))
}

const deleteClient = `DELETE FROM clients WHERE id = $1 RETURNING id`

func (q *Queries) DeleteClient(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, deleteClient, id).Scan(&deleted)
	return deleted, err
}
