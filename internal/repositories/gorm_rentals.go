package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookrental/internal/models"
)

type rentalRepository struct {
	db *gorm.DB
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Book").Preload("User")
}

// whereStatus restricts q to rentals whose effective status at now is status.
// An active rental past its due date counts as overdue.
func whereStatus(q *gorm.DB, status models.RentalStatus, now time.Time) *gorm.DB {
	switch status {
	case models.RentalStatusActive:
		return q.Where("status = ? AND due_date >= ?", models.RentalStatusActive, now)
	case models.RentalStatusOverdue:
		return q.Where("(status = ? OR (status = ? AND due_date < ?))",
			models.RentalStatusOverdue, models.RentalStatusActive, now)
	default:
		return q.Where("status = ?", status)
	}
}

func (r *rentalRepository) Create(ctx context.Context, rental *models.Rental) error {
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Create(rental).Error
	return translate(err)
}

func (r *rentalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := withRelations(r.db.WithContext(ctx)).First(&rental, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

func (r *rentalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&rental).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

func (r *rentalRepository) List(ctx context.Context, filter RentalFilter) ([]models.Rental, error) {
	q := withRelations(r.db.WithContext(ctx)).Model(&models.Rental{})
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != uuid.Nil {
		q = q.Where("book_id = ?", filter.BookID)
	}
	if filter.Status != "" {
		q = whereStatus(q, filter.Status, filter.Now)
	}

	var rentals []models.Rental
	if err := q.Order("created_at DESC").Find(&rentals).Error; err != nil {
		return nil, translate(err)
	}
	return rentals, nil
}

func (r *rentalRepository) Transition(ctx context.Context, rental *models.Rental, from models.RentalStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("id = ? AND status = ?", rental.ID, from).
		Updates(map[string]interface{}{
			"status":      rental.Status,
			"return_date": rental.ReturnDate,
			"late_fee":    rental.LateFee,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *rentalRepository) CountByBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("book_id = ?", bookID).
		Count(&n).Error
	return n, translate(err)
}

func (r *rentalRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("status = ? AND due_date < ?", models.RentalStatusActive, now).
		Update("status", models.RentalStatusOverdue)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *rentalRepository) Stats(ctx context.Context, now time.Time) (*models.RentalStats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.RentalStats{}

	if err := db.Model(&models.Rental{}).Count(&stats.TotalRentals).Error; err != nil {
		return nil, translate(err)
	}
	counts := []struct {
		status models.RentalStatus
		dest   *int64
	}{
		{models.RentalStatusActive, &stats.ActiveRentals},
		{models.RentalStatusOverdue, &stats.OverdueRentals},
		{models.RentalStatusReturned, &stats.ReturnedRentals},
		{models.RentalStatusCancelled, &stats.CancelledRentals},
	}
	for _, c := range counts {
		if err := whereStatus(db.Model(&models.Rental{}), c.status, now).Count(c.dest).Error; err != nil {
			return nil, translate(err)
		}
	}

	revenue, err := r.sumReturned(db, "total_price")
	if err != nil {
		return nil, err
	}
	lateFees, err := r.sumReturned(db, "late_fee")
	if err != nil {
		return nil, err
	}
	stats.Revenue = revenue
	stats.TotalLateFees = lateFees
	return stats, nil
}

func (r *rentalRepository) sumReturned(db *gorm.DB, column string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := db.Model(&models.Rental{}).
		Select("COALESCE(SUM("+column+"), 0)").
		Where("status = ?", models.RentalStatusReturned).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, translate(err)
	}
	return sum, nil
}
