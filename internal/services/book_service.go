package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/openshelf/openshelf/internal/models"
)

// BookRepository defines the interface for the book catalog
type BookRepository interface {
	GetByID(ctx context.Context, id string) (*models.Book, error)
	List(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error)
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	Update(ctx context.Context, id string, book *models.Book) (*models.Book, error)
	Delete(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// BookService handles the reader catalog
type BookService struct {
	repo   BookRepository
	logger *slog.Logger
}

func NewBookService(repo BookRepository, logger *slog.Logger) *BookService {
	return &BookService{repo: repo, logger: logger}
}

func (s *BookService) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get book", slog.String("book_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return book, nil
}

// ListBooks returns a page of books. Readers only see active books;
// admin views pass activeOnly=false.
func (s *BookService) ListBooks(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	if offset < 0 {
		offset = 0
	}

	books, total, err := s.repo.List(ctx, search, category, activeOnly, limit, offset)
	if err != nil {
		s.logger.Error("failed to list books", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return books, total, nil
}

func (s *BookService) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if book.Title == "" {
		return nil, models.ErrBadRequest
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		s.logger.Error("failed to create book", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("book created", slog.String("book_id", created.ID), slog.String("title", created.Title))
	return created, nil
}

func (s *BookService) UpdateBook(ctx context.Context, id string, book *models.Book) (*models.Book, error) {
	if book.Title == "" {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.Update(ctx, id, book)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update book", slog.String("book_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return updated, nil
}

func (s *BookService) DeleteBook(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete book", slog.String("book_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *BookService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return categories, nil
}

func (s *BookService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrBadRequest
	}

	category := &models.Category{
		Name: name,
		Slug: slugify(name),
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create category", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

func (s *BookService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete category", slog.String("category_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
