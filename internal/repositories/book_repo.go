package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/models"
)

type BookRepository struct {
	pool *pgxpool.Pool
}

func NewBookRepository(db *database.DB) *BookRepository {
	return &BookRepository{pool: db.Pool}
}

const bookColumns = `id, title, author, description, cover_url, drive_file_id,
	categories, is_active, sort_order, created_at, updated_at`

func scanBookRow(scanner rowScanner) (*models.Book, error) {
	var book models.Book
	err := scanner.Scan(
		&book.ID, &book.Title, &book.Author, &book.Description,
		&book.CoverURL, &book.DriveFileID, &book.Categories,
		&book.IsActive, &book.SortOrder, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &book, nil
}

func scanBookRows(rows pgx.Rows) ([]*models.Book, error) {
	defer rows.Close()

	books := make([]*models.Book, 0)
	for rows.Next() {
		book, err := scanBookRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return books, nil
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	return scanBookRow(r.pool.QueryRow(ctx, query, id))
}

// List returns a page of books with the total count. The search term
// matches title or author; category filters on the tag array.
func (r *BookRepository) List(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error) {
	where := `
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%')
		AND ($2 = '' OR $2 = ANY(categories))
		AND (NOT $3 OR is_active)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books `+where, search, category, activeOnly).Scan(&total); err != nil {
		return nil, 0, database.MapPostgresError(err)
	}

	query := `SELECT ` + bookColumns + ` FROM books ` + where + ` ORDER BY sort_order, created_at DESC LIMIT $4 OFFSET $5`
	rows, err := r.pool.Query(ctx, query, search, category, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query books: %w", err)
	}

	books, err := scanBookRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *BookRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	query := `
		INSERT INTO books (id, title, author, description, cover_url, drive_file_id,
			categories, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + bookColumns

	return scanBookRow(r.pool.QueryRow(ctx, query,
		book.ID, book.Title, book.Author, book.Description, book.CoverURL,
		book.DriveFileID, pq.Array(book.Categories), book.IsActive, book.SortOrder,
		book.CreatedAt, book.UpdatedAt,
	))
}

func (r *BookRepository) Update(ctx context.Context, id string, book *models.Book) (*models.Book, error) {
	query := `
		UPDATE books
		SET title = $1, author = $2, description = $3, cover_url = $4, drive_file_id = $5,
			categories = $6, is_active = $7, sort_order = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING ` + bookColumns

	return scanBookRow(r.pool.QueryRow(ctx, query,
		book.Title, book.Author, book.Description, book.CoverURL, book.DriveFileID,
		pq.Array(book.Categories), book.IsActive, book.SortOrder, id,
	))
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *BookRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return categories, nil
}

func (r *BookRepository) CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	category.CreatedAt = time.Now()

	query := `INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, created_at`

	var c models.Category
	err := r.pool.QueryRow(ctx, query, category.ID, category.Name, category.Slug, category.CreatedAt).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func (r *BookRepository) DeleteCategory(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
