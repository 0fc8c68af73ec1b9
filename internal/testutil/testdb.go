// Package testutil provides an in-memory store and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

// NewDB opens a private in-memory SQLite database with foreign keys enforced
// and the schema migrated. A single connection serialises all access, which
// matches SQLite's single-writer model.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(repositories.Models()...), "failed to migrate test database")
	return db
}

// NewStore returns a gorm store over a fresh in-memory database.
func NewStore(t testing.TB) *repositories.GormStore {
	t.Helper()
	return repositories.NewGormStore(NewDB(t))
}

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, store repositories.Store, role models.UserRole) *models.User {
	t.Helper()

	id := uuid.New()
	user := &models.User{
		ID:       id,
		Name:     "User " + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

// CreateBook inserts a book with stock copies, all available, renting at price per day.
func CreateBook(t testing.TB, store repositories.Store, stock int, price int64) *models.Book {
	t.Helper()

	id := uuid.New()
	book := &models.Book{
		ID:             id,
		Title:          "Book " + id.String()[:8],
		Author:         "Author",
		ISBN:           "978-" + id.String()[:8],
		Category:       models.CategoryFiction,
		Stock:          stock,
		AvailableStock: stock,
		RentalPrice:    decimal.NewFromInt(price),
		Cover:          models.DefaultCover,
	}
	require.NoError(t, store.Books().Create(context.Background(), book))
	return book
}
