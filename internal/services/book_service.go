package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookrental/internal/domain"
	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

// BookInput describes a new catalogue entry. All copies start out available.
type BookInput struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Author      string          `json:"author" validate:"required,max=255"`
	ISBN        string          `json:"isbn" validate:"required,max=32"`
	Publisher   string          `json:"publisher" validate:"max=255"`
	PublishYear int             `json:"publishYear" validate:"gte=0,lte=9999"`
	Category    string          `json:"category" validate:"required,category"`
	Description string          `json:"description"`
	Stock       int             `json:"stock" validate:"gte=0"`
	RentalPrice decimal.Decimal `json:"rentalPrice" validate:"gte=0"`
	Cover       string          `json:"cover" validate:"max=255"`
}

// BookUpdate is a partial edit; nil fields are left unchanged. A new Stock
// goes through the ledger so copies currently rented stay accounted for.
type BookUpdate struct {
	Title       *string          `json:"title" validate:"omitnil,min=1,max=255"`
	Author      *string          `json:"author" validate:"omitnil,min=1,max=255"`
	ISBN        *string          `json:"isbn" validate:"omitnil,min=1,max=32"`
	Publisher   *string          `json:"publisher" validate:"omitnil,max=255"`
	PublishYear *int             `json:"publishYear" validate:"omitnil,gte=0,lte=9999"`
	Category    *string          `json:"category" validate:"omitnil,category"`
	Description *string          `json:"description"`
	Stock       *int             `json:"stock"`
	RentalPrice *decimal.Decimal `json:"rentalPrice" validate:"omitnil,gte=0"`
	Cover       *string          `json:"cover" validate:"omitnil,max=255"`
}

func (u BookUpdate) apply(book *models.Book) error {
	if u.Title != nil {
		book.Title = strings.TrimSpace(*u.Title)
	}
	if u.Author != nil {
		book.Author = strings.TrimSpace(*u.Author)
	}
	if u.ISBN != nil {
		book.ISBN = strings.TrimSpace(*u.ISBN)
	}
	if u.Publisher != nil {
		book.Publisher = *u.Publisher
	}
	if u.PublishYear != nil {
		book.PublishYear = *u.PublishYear
	}
	if u.Category != nil {
		book.Category = *u.Category
	}
	if u.Description != nil {
		book.Description = *u.Description
	}
	if u.RentalPrice != nil {
		book.RentalPrice = *u.RentalPrice
	}
	if u.Cover != nil {
		book.Cover = *u.Cover
	}
	if u.Stock != nil {
		return domain.AdjustTotalStock(book, *u.Stock)
	}
	return nil
}

// BookService manages the catalogue.
type BookService interface {
	Create(ctx context.Context, in BookInput) (*models.Book, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error)
	Update(ctx context.Context, id uuid.UUID, in BookUpdate) (*models.Book, error)
	// Delete removes a book no rental has ever referenced.
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.BookStats, error)
}

type bookService struct {
	store    repositories.Store
	log      *slog.Logger
	validate *validator.Validate
	retry    retryPolicy
}

func NewBookService(store repositories.Store, log *slog.Logger) BookService {
	return &bookService{
		store:    store,
		log:      log.With("component", "book_service"),
		validate: newValidator(),
		retry:    defaultRetryPolicy(),
	}
}

func (s *bookService) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	book := &models.Book{
		Title:          strings.TrimSpace(in.Title),
		Author:         strings.TrimSpace(in.Author),
		ISBN:           strings.TrimSpace(in.ISBN),
		Publisher:      in.Publisher,
		PublishYear:    in.PublishYear,
		Category:       in.Category,
		Description:    in.Description,
		Stock:          in.Stock,
		AvailableStock: in.Stock,
		RentalPrice:    in.RentalPrice,
		Cover:          in.Cover,
	}
	if book.Cover == "" {
		book.Cover = models.DefaultCover
	}

	if err := s.store.Books().Create(ctx, book); err != nil {
		return nil, failure(s.log, "create book", duplicateISBN(err), "isbn", book.ISBN)
	}
	s.log.Info("book created", "book_id", book.ID, "isbn", book.ISBN, "stock", book.Stock)
	return book, nil
}

func (s *bookService) Get(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.store.Books().GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.log, "get book", orNotFound(err, domain.ErrBookNotFound), "book_id", id)
	}
	return book, nil
}

func (s *bookService) List(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error) {
	books, err := s.store.Books().List(ctx, filter)
	if err != nil {
		return nil, failure(s.log, "list books", err)
	}
	return books, nil
}

// Update applies a partial edit under the same stock guard as the rental
// lifecycle, rerunning when a rental changed the counters in between.
func (s *bookService) Update(ctx context.Context, id uuid.UUID, in BookUpdate) (*models.Book, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	var updated *models.Book
	err := s.retry.run(ctx, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
			book, err := repos.Books().GetForUpdate(ctx, id)
			if err != nil {
				return orNotFound(err, domain.ErrBookNotFound)
			}
			prev := book.StockLevel()
			if err := in.apply(book); err != nil {
				return err
			}
			if err := repos.Books().Update(ctx, book, prev); err != nil {
				return duplicateISBN(err)
			}
			updated = book
			return nil
		})
	})
	if err != nil {
		return nil, failure(s.log, "update book", err, "book_id", id)
	}

	s.log.Info("book updated",
		"book_id", updated.ID,
		"stock", updated.Stock,
		"available_stock", updated.AvailableStock,
	)
	return updated, nil
}

func (s *bookService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.Transaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Books().GetForUpdate(ctx, id); err != nil {
			return orNotFound(err, domain.ErrBookNotFound)
		}
		n, err := repos.Rentals().CountByBook(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrBookInUse
		}
		if err := repos.Books().Delete(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrReferenced) {
				return domain.ErrBookInUse
			}
			return orNotFound(err, domain.ErrBookNotFound)
		}
		return nil
	})
	if err != nil {
		return failure(s.log, "delete book", err, "book_id", id)
	}
	s.log.Info("book deleted", "book_id", id)
	return nil
}

func (s *bookService) Stats(ctx context.Context) (*models.BookStats, error) {
	stats, err := s.store.Books().Stats(ctx)
	if err != nil {
		return nil, failure(s.log, "book stats", err)
	}
	return stats, nil
}

func duplicateISBN(err error) error {
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return domain.ErrDuplicateISBN
	}
	return err
}
