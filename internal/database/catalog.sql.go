package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ── Cleaning sorts ──

func scanCleaningSort(row pgx.Row) (CleaningSort, error) {
	var i CleaningSort
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

func (q *Queries) ListCleaningSorts(ctx context.Context) ([]CleaningSort, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name FROM cleaning_sorts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCleaningSort)
}

func (q *Queries) CreateCleaningSort(ctx context.Context, name string) (CleaningSort, error) {
	return scanCleaningSort(q.db.QueryRow(ctx,
		`INSERT INTO cleaning_sorts (name) VALUES ($1) RETURNING id, name`, name))
}

func (q *Queries) UpdateCleaningSort(ctx context.Context, id int64, name string) (CleaningSort, error) {
	return scanCleaningSort(q.db.QueryRow(ctx,
		`UPDATE cleaning_sorts SET name = $2 WHERE id = $1 RETURNING id, name`, id, name))
}

func (q *Queries) DeleteCleaningSort(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, `DELETE FROM cleaning_sorts WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// ── Object types ──

func scanObjectType(row pgx.Row) (ObjectType, error) {
	var i ObjectType
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

func (q *Queries) ListObjectTypes(ctx context.Context) ([]ObjectType, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name FROM object_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanObjectType)
}

func (q *Queries) CreateObjectType(ctx context.Context, name string) (ObjectType, error) {
	return scanObjectType(q.db.QueryRow(ctx,
		`INSERT INTO object_types (name) VALUES ($1) RETURNING id, name`, name))
}

func (q *Queries) UpdateObjectType(ctx context.Context, id int64, name string) (ObjectType, error) {
	return scanObjectType(q.db.QueryRow(ctx,
		`UPDATE object_types SET name = $2 WHERE id = $1 RETURNING id, name`, id, name))
}

func (q *Queries) DeleteObjectType(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, `DELETE FROM object_types WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// ── Services ──

const serviceColumns = `id, cleaning_sort_id, object_type_id, unit, price`

func scanService(row pgx.Row) (Service, error) {
	var i Service
	err := row.Scan(&i.ID, &i.CleaningSortID, &i.ObjectTypeID, &i.Unit, &i.Price)
	return i, err
}

const listServices = `SELECT ` + serviceColumns + ` FROM services
WHERE ($1::bigint IS NULL OR cleaning_sort_id = $1)
  AND ($2::bigint IS NULL OR object_type_id = $2)
ORDER BY cleaning_sort_id, object_type_id`

type ListServicesParams struct {
	CleaningSortID pgtype.Int8 `json:"cleaning_sort_id"`
	ObjectTypeID   pgtype.Int8 `json:"object_type_id"`
}

func (q *Queries) ListServices(ctx context.Context, arg ListServicesParams) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServices, arg.CleaningSortID, arg.ObjectTypeID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanService)
}

func (q *Queries) GetService(ctx context.Context, id int64) (Service, error) {
	return scanService(q.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
}

type ServiceParams struct {
	ID             int64           `json:"id"`
	CleaningSortID int64           `json:"cleaning_sort_id"`
	ObjectTypeID   int64           `json:"object_type_id"`
	Unit           string          `json:"unit"`
	Price          decimal.Decimal `json:"price"`
}

const createService = `INSERT INTO services (cleaning_sort_id, object_type_id, unit, price)
VALUES ($1, $2, $3, $4)
RETURNING ` + serviceColumns

func (q *Queries) CreateService(ctx context.Context, arg ServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, createService, arg.CleaningSortID, arg.ObjectTypeID, arg.Unit, arg.Price))
}

const updateService = `UPDATE services SET cleaning_sort_id = $2, object_type_id = $3, unit = $4, price = $5
WHERE id = $1
RETURNING ` + serviceColumns

func (q *Queries) UpdateService(ctx context.Context, arg ServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, updateService, arg.ID, arg.CleaningSortID, arg.ObjectTypeID, arg.Unit, arg.Price))
}

func (q *Queries) DeleteService(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, `DELETE FROM services WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

// ── Extra services ──

const extraServiceColumns = `id, name, unit, price, cleaning_time`

func scanExtraService(row pgx.Row) (ExtraService, error) {
	var i ExtraService
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.Price, &i.CleaningTime)
	return i, err
}

func (q *Queries) ListExtraServices(ctx context.Context) ([]ExtraService, error) {
	rows, err := q.db.Query(ctx, `SELECT `+extraServiceColumns+` FROM extra_services ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanExtraService)
}

func (q *Queries) GetExtraService(ctx context.Context, id int64) (ExtraService, error) {
	return scanExtraService(q.db.QueryRow(ctx, `SELECT `+extraServiceColumns+` FROM extra_services WHERE id = $1`, id))
}

type ExtraServiceParams struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Unit         pgtype.Text     `json:"unit"`
	Price        decimal.Decimal `json:"price"`
	CleaningTime pgtype.Int4     `json:"cleaning_time"`
}

const createExtraService = `INSERT INTO extra_services (name, unit, price, cleaning_time)
VALUES ($1, $2, $3, $4)
RETURNING ` + extraServiceColumns

func (q *Queries) CreateExtraService(ctx context.Context, arg ExtraServiceParams) (ExtraService, error) {
	return scanExtraService(q.db.QueryRow(ctx, createExtraService, arg.Name, arg.Unit, arg.Price, arg.CleaningTime))
}

const updateExtraService = `UPDATE extra_services SET name = $2, unit = $3, price = $4, cleaning_time = $5
WHERE id = $1
RETURNING ` + extraServiceColumns

func (q *Queries) UpdateExtraService(ctx context.Context, arg ExtraServiceParams) (ExtraService, error) {
	return scanExtraService(q.db.QueryRow(ctx, updateExtraService, arg.ID, arg.Name, arg.Unit, arg.Price, arg.CleaningTime))
}

func (q *Queries) DeleteExtraService(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, `DELETE FROM extra_services WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}
