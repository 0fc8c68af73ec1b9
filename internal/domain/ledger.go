package domain

import "bookrental/internal/models"

// ─── Inventory Ledger ─────────────────────────────────────────────────────────
//
// The stock counters of a book are only ever changed through the functions in
// this file. Each of them leaves the book untouched when it fails and refreshes
// the derived availability flag when it succeeds.

// Reserve takes one copy of the book out of available stock.
func Reserve(book *models.Book) error {
	if book.AvailableStock < 1 {
		return ErrOutOfStock
	}
	book.AvailableStock--
	book.RefreshAvailability()
	return nil
}

// Release puts one copy of the book back into available stock.
func Release(book *models.Book) error {
	if book.AvailableStock+1 > book.Stock {
		return ErrStockExceeded
	}
	book.AvailableStock++
	book.RefreshAvailability()
	return nil
}

// AdjustTotalStock sets the total stock of the book and shifts available stock
// by the same delta, so the number of copies currently out is preserved.
func AdjustTotalStock(book *models.Book, newStock int) error {
	if newStock < 0 {
		return ErrNegativeStock
	}
	delta := newStock - book.Stock
	available := book.AvailableStock + delta
	if available < 0 {
		return ErrNegativeStock
	}
	book.Stock = newStock
	book.AvailableStock = available
	book.RefreshAvailability()
	return nil
}

// CopiesOut is the number of copies currently held by outstanding rentals.
func CopiesOut(book *models.Book) int {
	return book.Stock - book.AvailableStock
}
