package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bookrental/internal/models"
)

type bookRepository struct {
	db *gorm.DB
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return translate(err)
	}
	book.RefreshAvailability()
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

func (r *bookRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&book).Error
	if err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	q := r.db.WithContext(ctx).Model(&models.Book{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		q = q.Where("available_stock > 0")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like)
	}

	var books []models.Book
	if err := q.Order("created_at DESC").Find(&books).Error; err != nil {
		return nil, translate(err)
	}
	return books, nil
}

func (r *bookRepository) Update(ctx context.Context, book *models.Book, expected models.StockLevel) error {
	return r.casUpdate(ctx, book, expected, map[string]interface{}{
		"title":           book.Title,
		"author":          book.Author,
		"isbn":            book.ISBN,
		"publisher":       book.Publisher,
		"publish_year":    book.PublishYear,
		"category":        book.Category,
		"description":     book.Description,
		"cover":           book.Cover,
		"rental_price":    book.RentalPrice,
		"stock":           book.Stock,
		"available_stock": book.AvailableStock,
	})
}

func (r *bookRepository) UpdateStock(ctx context.Context, book *models.Book, expected models.StockLevel) error {
	return r.casUpdate(ctx, book, expected, map[string]interface{}{
		"stock":           book.Stock,
		"available_stock": book.AvailableStock,
	})
}

// casUpdate applies columns only while the stored stock counters still equal
// expected, so a stale read can never overwrite a concurrent ledger change.
func (r *bookRepository) casUpdate(ctx context.Context, book *models.Book, expected models.StockLevel, columns map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND stock = ? AND available_stock = ?", book.ID, expected.Stock, expected.AvailableStock).
		Updates(columns)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	book.RefreshAvailability()
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookRepository) Stats(ctx context.Context) (*models.BookStats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.BookStats{}

	if err := db.Model(&models.Book{}).Count(&stats.TotalBooks).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&models.Book{}).Where("available_stock > 0").Count(&stats.AvailableBooks).Error; err != nil {
		return nil, translate(err)
	}
	stats.RentedBooks = stats.TotalBooks - stats.AvailableBooks

	err := db.Model(&models.Book{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&stats.BooksByCategory).Error
	if err != nil {
		return nil, translate(err)
	}
	if stats.BooksByCategory == nil {
		stats.BooksByCategory = []models.CategoryCount{}
	}
	return stats, nil
}
