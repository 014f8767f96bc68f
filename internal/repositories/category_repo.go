package repositories

import (
	"context"
	"fmt"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListAll(ctx context.Context) ([]*models.Category, error)
}

type categoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

const categoryColumns = `id, parent_id, name, slug, show_all_products, position, created_at, updated_at`

func (r *categoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c := &models.Category{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.ShowAllProducts, &c.Position, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListAll returns every category; the tree is small enough to be walked in memory.
func (r *categoryRepo) ListAll(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY position, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.ShowAllProducts, &c.Position, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
