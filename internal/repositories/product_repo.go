package repositories

import (
	"context"
	"fmt"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByCategories(ctx context.Context, categoryIDs []uuid.UUID, sort string) ([]*models.Product, error)
	ListVariants(ctx context.Context, parentIDs []uuid.UUID) ([]*models.Product, error)
	ListAll(ctx context.Context) ([]*models.Product, error)
	CategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
	UpdateEffectivePrice(ctx context.Context, id uuid.UUID, price float64) error
}

type productRepo struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `p.id, p.sub_type, p.parent_id, p.default_variant_id, p.name, p.slug, p.sku,
	p.short_description, p.description, p.meta_keywords, p.meta_description, p.images,
	p.price, p.for_sale, p.for_sale_price, p.effective_price, t.rate,
	p.active_name, p.active_sku, p.active_short_description, p.active_description, p.active_price,
	p.active_images, p.active_related_products, p.active_accessories, p.active_meta_keywords,
	p.active_meta_description, p.position, p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN taxes t ON t.id = p.tax_id`

// sortOrders maps the storefront sort keys to ORDER BY clauses
var sortOrders = map[string]string{
	"position": "p.position, p.name",
	"name":     "p.name, p.position",
	"-name":    "p.name DESC, p.position",
	"price":    "p.effective_price, p.position",
	"-price":   "p.effective_price DESC, p.position",
}

// SortOrder returns the ORDER BY clause for sort, defaulting to position order
func SortOrder(sort string) string {
	if order, ok := sortOrders[sort]; ok {
		return order
	}
	return sortOrders["position"]
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID, &p.SubType, &p.ParentID, &p.DefaultVariantID, &p.Name, &p.Slug, &p.SKU,
		&p.ShortDescription, &p.Description, &p.MetaKeywords, &p.MetaDescription, &p.Images,
		&p.Price, &p.ForSale, &p.ForSalePrice, &p.EffectivePrice, &p.TaxRate,
		&p.ActiveName, &p.ActiveSKU, &p.ActiveShortDescription, &p.ActiveDescription, &p.ActivePrice,
		&p.ActiveImages, &p.ActiveRelatedProducts, &p.ActiveAccessories, &p.ActiveMetaKeywords,
		&p.ActiveMetaDescription, &p.Position, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByID loads a product with its related products and accessories. A variant
// comes back with its parent attached.
func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := r.getOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsVariant() && p.ParentID != nil {
		parent, err := r.getOne(ctx, *p.ParentID)
		if err != nil {
			return nil, fmt.Errorf("load parent of %s: %w", id, err)
		}
		p.Parent = parent
	}
	return p, nil
}

func (r *productRepo) getOne(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.loadRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) loadRelations(ctx context.Context, p *models.Product) error {
	rows, err := r.db.Query(ctx, `
		SELECT rp.related_id, rel.sub_type
		FROM related_products rp
		JOIN products rel ON rel.id = rp.related_id
		WHERE rp.product_id = $1`, p.ID)
	if err != nil {
		return fmt.Errorf("load related products: %w", err)
	}
	for rows.Next() {
		var rel models.RelatedProduct
		if err := rows.Scan(&rel.ProductID, &rel.SubType); err != nil {
			rows.Close()
			return err
		}
		p.RelatedProducts = append(p.RelatedProducts, rel)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT accessory_id, position, quantity
		FROM product_accessories
		WHERE product_id = $1
		ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("load accessories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Accessory
		if err := rows.Scan(&a.AccessoryID, &a.Position, &a.Quantity); err != nil {
			return err
		}
		p.Accessories = append(p.Accessories, a)
	}
	return rows.Err()
}

// ListByCategories returns the non-variant products assigned to any of the categories.
func (r *productRepo) ListByCategories(ctx context.Context, categoryIDs []uuid.UUID, sort string) ([]*models.Product, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.sub_type <> 'variant'
		AND p.id IN (SELECT product_id FROM product_categories WHERE category_id = ANY($1))
		ORDER BY ` + SortOrder(sort)

	products, err := r.queryProducts(ctx, query, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("list products by categories: %w", err)
	}
	return products, nil
}

func (r *productRepo) ListVariants(ctx context.Context, parentIDs []uuid.UUID) ([]*models.Product, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.sub_type = 'variant' AND p.parent_id = ANY($1)
		ORDER BY p.position`

	variants, err := r.queryProducts(ctx, query, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return variants, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` ORDER BY p.position`

	products, err := r.queryProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// CategoryIDs returns the categories of a product. Variants report their parent's categories.
func (r *productRepo) CategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT pc.category_id
		FROM product_categories pc
		JOIN products p ON p.id = $1
		WHERE pc.product_id = COALESCE(p.parent_id, p.id)`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *productRepo) UpdateEffectivePrice(ctx context.Context, id uuid.UUID, price float64) error {
	query := `UPDATE products SET effective_price = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, price)
	if err != nil {
		return fmt.Errorf("update effective price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
