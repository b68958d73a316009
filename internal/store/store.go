package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store serves catalog documents from Postgres
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// productRow is a stored catalog document
type productRow struct {
	ID        string    `db:"id"`
	Document  []byte    `db:"document"`
	UpdatedAt time.Time `db:"updated_at"`
}

// relatedRow is a related product summary projected out of its document
type relatedRow struct {
	ID       string         `db:"id"`
	Name     sql.NullString `db:"name"`
	Category sql.NullString `db:"category"`
	Brand    sql.NullString `db:"brand"`
	Image    sql.NullString `db:"image"`
}

// FetchProduct retrieves a product document by ID
func (s *Store) FetchProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Store.FetchProduct")
	defer span.End()

	var row productRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, document, updated_at FROM products WHERE id = $1 AND show_on_web", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &catalog.TransportError{Status: 404, Err: fmt.Errorf("%w: %s", catalog.ErrNotFound, id)}
	}
	if err != nil {
		return nil, &catalog.TransportError{Err: err}
	}

	var product models.Product
	if err := json.Unmarshal(row.Document, &product); err != nil {
		return nil, &catalog.TransportError{Err: fmt.Errorf("failed to decode product %s: %w", id, err)}
	}
	if product.ID == "" {
		product.ID = row.ID
	}
	if issues := product.DecodeIssues(); len(issues) > 0 {
		util.GetLogger().Warn("Stored product has malformed fields",
			zap.String("product_id", id),
			zap.Strings("fields", issues))
	}
	return &product, nil
}

// FetchRelated retrieves the related products of a product in display order
func (s *Store) FetchRelated(ctx context.Context, id string) ([]models.RelatedProduct, error) {
	ctx, span := util.StartSpan(ctx, "Store.FetchRelated")
	defer span.End()

	query := `
		SELECT p.id,
		       p.document->>'name' AS name,
		       p.document->>'category' AS category,
		       p.document->>'brand' AS brand,
		       p.document->>'image' AS image
		FROM product_related r
		JOIN products p ON p.id = r.related_id
		WHERE r.product_id = $1 AND p.show_on_web
		ORDER BY r.position`

	var rows []relatedRow
	if err := s.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, &catalog.TransportError{Err: err}
	}

	related := make([]models.RelatedProduct, 0, len(rows))
	for _, r := range rows {
		related = append(related, models.RelatedProduct{
			ID:       r.ID,
			Name:     r.Name.String,
			Category: r.Category.String,
			Brand:    r.Brand.String,
			Image:    r.Image.String,
		})
	}
	return related, nil
}

// UpsertProduct stores a product document
func (s *Store) UpsertProduct(ctx context.Context, product *models.Product, showOnWeb bool) error {
	doc, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, document, show_on_web)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET document = EXCLUDED.document, show_on_web = EXCLUDED.show_on_web, updated_at = NOW()`,
		product.ID, doc, showOnWeb)
	return err
}

// SetRelated replaces the related products of a product
func (s *Store) SetRelated(ctx context.Context, productID string, relatedIDs []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_related WHERE product_id = $1", productID); err != nil {
		return fmt.Errorf("failed to clear related products: %w", err)
	}

	for i, relatedID := range relatedIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO product_related (product_id, related_id, position) VALUES ($1, $2, $3)",
			productID, relatedID, i)
		if err != nil {
			return fmt.Errorf("failed to insert related product: %w", err)
		}
	}

	return tx.Commit()
}
