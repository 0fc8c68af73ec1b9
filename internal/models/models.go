package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "active"
	RentalStatusOverdue   RentalStatus = "overdue"
	RentalStatusReturned  RentalStatus = "returned"
	RentalStatusCancelled RentalStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s RentalStatus) Terminal() bool {
	return s == RentalStatusReturned || s == RentalStatusCancelled
}

// Outstanding reports whether a rental in state s still holds a copy of its book.
func (s RentalStatus) Outstanding() bool {
	return s == RentalStatusActive || s == RentalStatusOverdue
}

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusActive, RentalStatusOverdue, RentalStatusReturned, RentalStatusCancelled:
		return true
	}
	return false
}

// Book categories accepted by the catalogue.
const (
	CategoryFiction    = "Fiksi"
	CategoryNonFiction = "Non-Fiksi"
	CategoryScience    = "Sains"
	CategoryTechnology = "Teknologi"
	CategoryHistory    = "Sejarah"
	CategoryBiography  = "Biografi"
	CategoryChildren   = "Anak-anak"
	CategoryOther      = "Lainnya"
)

var Categories = []string{
	CategoryFiction,
	CategoryNonFiction,
	CategoryScience,
	CategoryTechnology,
	CategoryHistory,
	CategoryBiography,
	CategoryChildren,
	CategoryOther,
}

const DefaultCover = "default-book-cover.jpg"

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Role      UserRole  `gorm:"size:20;not null;default:'user'" json:"role"`
	Phone     string    `gorm:"size:50" json:"phone,omitempty"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// StockLevel is the pair of stock counters a ledger write is conditioned on.
type StockLevel struct {
	Stock          int
	AvailableStock int
}

type Book struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Author         string          `gorm:"size:255;not null" json:"author"`
	ISBN           string          `gorm:"column:isbn;size:32;not null;uniqueIndex" json:"isbn"`
	Publisher      string          `gorm:"size:255" json:"publisher,omitempty"`
	PublishYear    int             `json:"publishYear,omitempty"`
	Category       string          `gorm:"size:32;not null;index" json:"category"`
	Description    string          `gorm:"type:text" json:"description,omitempty"`
	Stock          int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	AvailableStock int             `gorm:"not null;default:0;check:available_stock >= 0 AND available_stock <= stock" json:"availableStock"`
	RentalPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rentalPrice"`
	Cover          string          `gorm:"size:255" json:"cover"`
	IsAvailable    bool            `gorm:"-" json:"isAvailable"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AfterFind derives the availability flag, which is never persisted.
func (b *Book) AfterFind(*gorm.DB) error {
	b.RefreshAvailability()
	return nil
}

func (b *Book) RefreshAvailability() {
	b.IsAvailable = b.AvailableStock > 0
}

func (b *Book) StockLevel() StockLevel {
	return StockLevel{Stock: b.Stock, AvailableStock: b.AvailableStock}
}

type Rental struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	User       *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"user,omitempty"`
	BookID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"bookId"`
	Book       *Book           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"book,omitempty"`
	RentalDate time.Time       `gorm:"not null" json:"rentalDate"`
	DueDate    time.Time       `gorm:"not null;index" json:"dueDate"`
	ReturnDate *time.Time      `json:"returnDate"`
	Status     RentalStatus    `gorm:"size:20;not null;default:'active';index" json:"status"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	LateFee    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"lateFee"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (r *Rental) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BookStats summarises the catalogue.
type BookStats struct {
	TotalBooks      int64           `json:"totalBooks"`
	AvailableBooks  int64           `json:"availableBooks"`
	RentedBooks     int64           `json:"rentedBooks"`
	BooksByCategory []CategoryCount `json:"booksByCategory"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// RentalStats summarises rentals. Active and overdue counts follow the lazy
// overdue rule, so an active rental past its due date is counted as overdue.
type RentalStats struct {
	TotalRentals     int64           `json:"totalRentals"`
	ActiveRentals    int64           `json:"activeRentals"`
	OverdueRentals   int64           `json:"overdueRentals"`
	ReturnedRentals  int64           `json:"returnedRentals"`
	CancelledRentals int64           `json:"cancelledRentals"`
	Revenue          decimal.Decimal `json:"revenue"`
	TotalLateFees    decimal.Decimal `json:"totalLateFees"`
}
