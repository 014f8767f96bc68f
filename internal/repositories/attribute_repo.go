package repositories

import (
	"context"
	"fmt"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AttributeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error)
	ListWithOptions(ctx context.Context) ([]*models.Attribute, error)
	ChangeType(ctx context.Context, id uuid.UUID, attrType models.AttributeType) (int64, error)
}

type attributeRepo struct {
	db DBTX
}

func NewAttributeRepo(db DBTX) AttributeRepository {
	return &attributeRepo{db: db}
}

const attributeColumns = `id, name, unit, type, filterable, display_no_results, step_policy, step, position, local, owner_product_id`

func (r *attributeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error) {
	query := `SELECT ` + attributeColumns + ` FROM attributes WHERE id = $1`

	a := &models.Attribute{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.Unit, &a.Type, &a.Filterable, &a.DisplayNoResults,
		&a.StepPolicy, &a.Step, &a.Position, &a.Local, &a.OwnerProductID,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.attachOptions(ctx, map[uuid.UUID]*models.Attribute{a.ID: a}, []uuid.UUID{a.ID}); err != nil {
		return nil, err
	}
	return a, nil
}

// ListWithOptions returns every attribute with its options and manual filter steps.
func (r *attributeRepo) ListWithOptions(ctx context.Context) ([]*models.Attribute, error) {
	query := `SELECT ` + attributeColumns + ` FROM attributes ORDER BY position, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var attributes []*models.Attribute
	byID := make(map[uuid.UUID]*models.Attribute)
	var ids []uuid.UUID
	for rows.Next() {
		a := &models.Attribute{}
		err := rows.Scan(
			&a.ID, &a.Name, &a.Unit, &a.Type, &a.Filterable, &a.DisplayNoResults,
			&a.StepPolicy, &a.Step, &a.Position, &a.Local, &a.OwnerProductID,
		)
		if err != nil {
			return nil, err
		}
		attributes = append(attributes, a)
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return attributes, nil
	}
	if err := r.attachOptions(ctx, byID, ids); err != nil {
		return nil, err
	}
	return attributes, nil
}

func (r *attributeRepo) attachOptions(ctx context.Context, byID map[uuid.UUID]*models.Attribute, ids []uuid.UUID) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, attribute_id, name, price, position
		FROM attribute_options
		WHERE attribute_id = ANY($1)
		ORDER BY position, name`, ids)
	if err != nil {
		return fmt.Errorf("list attribute options: %w", err)
	}
	for rows.Next() {
		var o models.AttributeOption
		if err := rows.Scan(&o.ID, &o.AttributeID, &o.Name, &o.Price, &o.Position); err != nil {
			rows.Close()
			return err
		}
		if a, ok := byID[o.AttributeID]; ok {
			a.Options = append(a.Options, o)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT id, attribute_id, start
		FROM filter_steps
		WHERE attribute_id = ANY($1)
		ORDER BY start`, ids)
	if err != nil {
		return fmt.Errorf("list filter steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s models.FilterStep
		if err := rows.Scan(&s.ID, &s.AttributeID, &s.Start); err != nil {
			return err
		}
		if a, ok := byID[s.AttributeID]; ok {
			a.Steps = append(a.Steps, s)
		}
	}
	return rows.Err()
}

// ChangeType switches an attribute's type and drops its stored values in one
// transaction. It returns the number of deleted values.
func (r *attributeRepo) ChangeType(ctx context.Context, id uuid.UUID, attrType models.AttributeType) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	deleted, err := changeType(ctx, tx, id, attrType)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit attribute type: %w", err)
	}
	return deleted, nil
}

func changeType(ctx context.Context, tx pgx.Tx, id uuid.UUID, attrType models.AttributeType) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM attribute_values WHERE attribute_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete attribute values: %w", err)
	}
	updated, err := tx.Exec(ctx, `UPDATE attributes SET type = $2 WHERE id = $1`, id, attrType)
	if err != nil {
		return 0, fmt.Errorf("update attribute type: %w", err)
	}
	if updated.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return tag.RowsAffected(), nil
}
