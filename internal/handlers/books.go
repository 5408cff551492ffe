package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/models"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
)

// BookServiceInterface defines the interface for the book catalog
type BookServiceInterface interface {
	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, search, category string, activeOnly bool, limit, offset int) ([]*models.Book, int, error)
	CreateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	UpdateBook(ctx context.Context, id string, book *models.Book) (*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// BookHandler handles catalog HTTP requests
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// BookRequest represents the request body for creating or updating a book
type BookRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=300"`
	Author      string   `json:"author" validate:"omitempty,max=200"`
	Description string   `json:"description"`
	CoverURL    string   `json:"cover_url" validate:"omitempty,url"`
	DriveFileID string   `json:"drive_file_id"`
	Categories  []string `json:"categories"`
	IsActive    bool     `json:"is_active"`
	SortOrder   int      `json:"sort_order"`
}

// CreateCategoryRequest represents the request body for adding a category
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// BookResponse represents a book in the HTTP response
type BookResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	DriveFileID string    `json:"drive_file_id,omitempty"`
	Categories  []string  `json:"categories"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListBooksResponse represents a page of books
type ListBooksResponse struct {
	Books []*BookResponse `json:"books"`
	Total int             `json:"total"`
}

// CategoryResponse represents a category in the HTTP response
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func bookModelToResponse(book *models.Book) *BookResponse {
	categories := book.Categories
	if categories == nil {
		categories = []string{}
	}
	return &BookResponse{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		CoverURL:    book.CoverURL,
		DriveFileID: book.DriveFileID,
		Categories:  categories,
		IsActive:    book.IsActive,
		SortOrder:   book.SortOrder,
		CreatedAt:   book.CreatedAt,
		UpdatedAt:   book.UpdatedAt,
	}
}

func (req *BookRequest) toModel() *models.Book {
	return &models.Book{
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Description: req.Description,
		CoverURL:    req.CoverURL,
		DriveFileID: req.DriveFileID,
		Categories:  req.Categories,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
	}
}

// listBooks is shared by the reader and admin listings; only the
// activeOnly flag differs.
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	category := r.URL.Query().Get("category")

	books, total, err := h.service.ListBooks(r.Context(), search, category, activeOnly, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ListBooksResponse{Books: make([]*BookResponse, len(books)), Total: total}
	for i, b := range books {
		resp.Books[i] = bookModelToResponse(b)
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ListBooks serves the reader catalog (active books only)
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	h.listBooks(w, r, true)
}

// ListAllBooks serves the admin catalog view
func (h *BookHandler) ListAllBooks(w http.ResponseWriter, r *http.Request) {
	h.listBooks(w, r, false)
}

// GetBook retrieves a book by ID
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		pkghttp.WriteBadRequest(w, "book id is required")
		return
	}

	book, err := h.service.GetBookByID(r.Context(), bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, bookModelToResponse(book))
}

// CreateBook adds a book to the catalog
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	book, err := h.service.CreateBook(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, bookModelToResponse(book))
}

// UpdateBook replaces a book's editable fields
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		pkghttp.WriteBadRequest(w, "book id is required")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	book, err := h.service.UpdateBook(r.Context(), bookID, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, bookModelToResponse(book))
}

// DeleteBook removes a book
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		pkghttp.WriteBadRequest(w, "book id is required")
		return
	}

	if err := h.service.DeleteBook(r.Context(), bookID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns every catalog category
func (h *BookHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]*CategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = &CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

// CreateCategory adds a category
func (h *BookHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, &CategoryResponse{ID: category.ID, Name: category.Name, Slug: category.Slug})
}

// DeleteCategory removes a category
func (h *BookHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")
	if categoryID == "" {
		pkghttp.WriteBadRequest(w, "category id is required")
		return
	}

	if err := h.service.DeleteCategory(r.Context(), categoryID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
