package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookService_ListBooks_ClampsLimit(t *testing.T) {
	var gotLimit int
	var gotActiveOnly bool
	repo := &MockBookRepository{
		ListFunc: func(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error) {
			gotLimit = limit
			gotActiveOnly = activeOnly
			return nil, 0, nil
		},
	}
	svc := NewBookService(repo, slog.Default())

	_, _, err := svc.ListBooks(context.Background(), "", "", true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 24, gotLimit)
	assert.True(t, gotActiveOnly)
}

func TestBookService_CreateBook_RequiresTitle(t *testing.T) {
	svc := NewBookService(&MockBookRepository{}, slog.Default())

	_, err := svc.CreateBook(context.Background(), &models.Book{Author: "Anonymous"})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestBookService_CreateCategory_Slugs(t *testing.T) {
	var created *models.Category
	repo := &MockBookRepository{
		CreateCategoryFunc: func(ctx context.Context, category *models.Category) (*models.Category, error) {
			created = category
			return category, nil
		},
	}
	svc := NewBookService(repo, slog.Default())

	_, err := svc.CreateCategory(context.Background(), "  Science Fiction & Fantasy ")
	require.NoError(t, err)
	assert.Equal(t, "Science Fiction & Fantasy", created.Name)
	assert.Equal(t, "science-fiction-fantasy", created.Slug)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"History", "history"},
		{"Self Help", "self-help"},
		{"C++ Programming", "c-programming"},
		{"--- ", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, slugify(tc.in), tc.in)
	}
}
