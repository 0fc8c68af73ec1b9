package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookrental/internal/models"
)

// Documents keep ids as canonical uuid strings so they read the same in the
// mongo shell as in the API, and money as Decimal128.

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	Phone     string    `bson:"phone,omitempty"`
	Address   string    `bson:"address,omitempty"`
	IsActive  bool      `bson:"is_active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type bookDoc struct {
	ID             string               `bson:"_id"`
	Title          string               `bson:"title"`
	Author         string               `bson:"author"`
	ISBN           string               `bson:"isbn"`
	Publisher      string               `bson:"publisher,omitempty"`
	PublishYear    int                  `bson:"publish_year,omitempty"`
	Category       string               `bson:"category"`
	Description    string               `bson:"description,omitempty"`
	Stock          int                  `bson:"stock"`
	AvailableStock int                  `bson:"available_stock"`
	RentalPrice    primitive.Decimal128 `bson:"rental_price"`
	Cover          string               `bson:"cover"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

type rentalDoc struct {
	ID         string               `bson:"_id"`
	UserID     string               `bson:"user_id"`
	BookID     string               `bson:"book_id"`
	RentalDate time.Time            `bson:"rental_date"`
	DueDate    time.Time            `bson:"due_date"`
	ReturnDate *time.Time           `bson:"return_date"`
	Status     string               `bson:"status"`
	TotalPrice primitive.Decimal128 `bson:"total_price"`
	LateFee    primitive.Decimal128 `bson:"late_fee"`
	Notes      string               `bson:"notes,omitempty"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode id %q: %w", s, err)
	}
	return id, nil
}

// utc drops the monotonic reading and truncates to the millisecond precision
// BSON dates carry, so a value reads back exactly as it was written.
func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Phone:     u.Phone,
		Address:   u.Address,
		IsActive:  u.IsActive,
		CreatedAt: utc(u.CreatedAt),
		UpdatedAt: utc(u.UpdatedAt),
	}
}

func (d userDoc) model() (*models.User, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        id,
		Name:      d.Name,
		Email:     d.Email,
		Role:      models.UserRole(d.Role),
		Phone:     d.Phone,
		Address:   d.Address,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func toBookDoc(b *models.Book) (bookDoc, error) {
	price, err := toDecimal128(b.RentalPrice)
	if err != nil {
		return bookDoc{}, err
	}
	return bookDoc{
		ID:             b.ID.String(),
		Title:          b.Title,
		Author:         b.Author,
		ISBN:           b.ISBN,
		Publisher:      b.Publisher,
		PublishYear:    b.PublishYear,
		Category:       b.Category,
		Description:    b.Description,
		Stock:          b.Stock,
		AvailableStock: b.AvailableStock,
		RentalPrice:    price,
		Cover:          b.Cover,
		CreatedAt:      utc(b.CreatedAt),
		UpdatedAt:      utc(b.UpdatedAt),
	}, nil
}

func (d bookDoc) model() (*models.Book, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	price, err := fromDecimal128(d.RentalPrice)
	if err != nil {
		return nil, err
	}
	book := &models.Book{
		ID:             id,
		Title:          d.Title,
		Author:         d.Author,
		ISBN:           d.ISBN,
		Publisher:      d.Publisher,
		PublishYear:    d.PublishYear,
		Category:       d.Category,
		Description:    d.Description,
		Stock:          d.Stock,
		AvailableStock: d.AvailableStock,
		RentalPrice:    price,
		Cover:          d.Cover,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	book.RefreshAvailability()
	return book, nil
}

func toRentalDoc(r *models.Rental) (rentalDoc, error) {
	total, err := toDecimal128(r.TotalPrice)
	if err != nil {
		return rentalDoc{}, err
	}
	fee, err := toDecimal128(r.LateFee)
	if err != nil {
		return rentalDoc{}, err
	}
	var returned *time.Time
	if r.ReturnDate != nil {
		t := utc(*r.ReturnDate)
		returned = &t
	}
	return rentalDoc{
		ID:         r.ID.String(),
		UserID:     r.UserID.String(),
		BookID:     r.BookID.String(),
		RentalDate: utc(r.RentalDate),
		DueDate:    utc(r.DueDate),
		ReturnDate: returned,
		Status:     string(r.Status),
		TotalPrice: total,
		LateFee:    fee,
		Notes:      r.Notes,
		CreatedAt:  utc(r.CreatedAt),
		UpdatedAt:  utc(r.UpdatedAt),
	}, nil
}

func (d rentalDoc) model() (*models.Rental, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(d.UserID)
	if err != nil {
		return nil, err
	}
	bookID, err := parseID(d.BookID)
	if err != nil {
		return nil, err
	}
	total, err := fromDecimal128(d.TotalPrice)
	if err != nil {
		return nil, err
	}
	fee, err := fromDecimal128(d.LateFee)
	if err != nil {
		return nil, err
	}
	var returned *time.Time
	if d.ReturnDate != nil {
		t := d.ReturnDate.UTC()
		returned = &t
	}
	return &models.Rental{
		ID:         id,
		UserID:     userID,
		BookID:     bookID,
		RentalDate: d.RentalDate.UTC(),
		DueDate:    d.DueDate.UTC(),
		ReturnDate: returned,
		Status:     models.RentalStatus(d.Status),
		TotalPrice: total,
		LateFee:    fee,
		Notes:      d.Notes,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}, nil
}
