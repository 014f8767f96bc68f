package repositories

import (
	"context"
	"fmt"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AttributeValueRepository interface {
	ListForProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.AttributeValue, error)
	ReplaceForProduct(ctx context.Context, productID uuid.UUID, values []models.AttributeValue) error
}

type attributeValueRepo struct {
	db DBTX
}

func NewAttributeValueRepo(db DBTX) AttributeValueRepository {
	return &attributeValueRepo{db: db}
}

func (r *attributeValueRepo) ListForProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.AttributeValue, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT product_id, attribute_id, value, value_as_float, parent_id
		FROM attribute_values
		WHERE product_id = ANY($1)`

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("list attribute values: %w", err)
	}
	defer rows.Close()

	var values []models.AttributeValue
	for rows.Next() {
		var v models.AttributeValue
		if err := rows.Scan(&v.ProductID, &v.AttributeID, &v.Value, &v.ValueAsFloat, &v.ParentID); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ReplaceForProduct swaps all attribute values of a product in one transaction.
func (r *attributeValueRepo) ReplaceForProduct(ctx context.Context, productID uuid.UUID, values []models.AttributeValue) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := replaceValues(ctx, tx, productID, values); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func replaceValues(ctx context.Context, tx pgx.Tx, productID uuid.UUID, values []models.AttributeValue) error {
	if _, err := tx.Exec(ctx, `DELETE FROM attribute_values WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete attribute values: %w", err)
	}
	for _, v := range values {
		if err := insertValue(ctx, tx, v); err != nil {
			return err
		}
	}
	return nil
}

func insertValue(ctx context.Context, tx pgx.Tx, v models.AttributeValue) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO attribute_values (product_id, attribute_id, value, value_as_float, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, attribute_id, value) DO NOTHING`,
		v.ProductID, v.AttributeID, v.Value, v.ValueAsFloat, v.ParentID)
	if err != nil {
		return fmt.Errorf("insert attribute value: %w", err)
	}
	return nil
}
