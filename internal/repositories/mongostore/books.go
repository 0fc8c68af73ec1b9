package mongostore

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

type bookRepository struct {
	coll *mongo.Collection
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	ts := now()
	book.CreatedAt, book.UpdatedAt = ts, ts

	doc, err := toBookDoc(book)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	book.RefreshAvailability()
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var doc bookDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model()
}

// GetForUpdate is a plain read; the stock guard on the following write
// detects concurrent changes instead of a lock.
func (r *bookRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	return r.GetByID(ctx, id)
}

func bookFilter(filter repositories.BookFilter) bson.M {
	q := bson.M{}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.AvailableOnly {
		q["available_stock"] = bson.M{"$gt": 0}
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{bson.M{"title": re}, bson.M{"author": re}}
	}
	return q
}

func (r *bookRepository) List(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, bookFilter(filter), opts)
	if err != nil {
		return nil, translate(err)
	}
	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return bookModels(docs)
}

func bookModels(docs []bookDoc) ([]models.Book, error) {
	books := make([]models.Book, 0, len(docs))
	for _, d := range docs {
		b, err := d.model()
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, nil
}

func (r *bookRepository) Update(ctx context.Context, book *models.Book, expected models.StockLevel) error {
	price, err := toDecimal128(book.RentalPrice)
	if err != nil {
		return err
	}
	return r.casUpdate(ctx, book, expected, bson.M{
		"title":           book.Title,
		"author":          book.Author,
		"isbn":            book.ISBN,
		"publisher":       book.Publisher,
		"publish_year":    book.PublishYear,
		"category":        book.Category,
		"description":     book.Description,
		"cover":           book.Cover,
		"rental_price":    price,
		"stock":           book.Stock,
		"available_stock": book.AvailableStock,
	})
}

func (r *bookRepository) UpdateStock(ctx context.Context, book *models.Book, expected models.StockLevel) error {
	return r.casUpdate(ctx, book, expected, bson.M{
		"stock":           book.Stock,
		"available_stock": book.AvailableStock,
	})
}

func (r *bookRepository) casUpdate(ctx context.Context, book *models.Book, expected models.StockLevel, set bson.M) error {
	ts := now()
	set["updated_at"] = ts

	filter := bson.M{
		"_id":             book.ID.String(),
		"stock":           expected.Stock,
		"available_stock": expected.AvailableStock,
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrConflict
	}
	book.UpdatedAt = ts
	book.RefreshAvailability()
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *bookRepository) Stats(ctx context.Context) (*models.BookStats, error) {
	stats := &models.BookStats{BooksByCategory: []models.CategoryCount{}}

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, translate(err)
	}
	available, err := r.coll.CountDocuments(ctx, bson.M{"available_stock": bson.M{"$gt": 0}})
	if err != nil {
		return nil, translate(err)
	}
	stats.TotalBooks = total
	stats.AvailableBooks = available
	stats.RentedBooks = total - available

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err)
	}
	var groups []struct {
		Category string `bson:"_id"`
		Count    int64  `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		stats.BooksByCategory = append(stats.BooksByCategory, models.CategoryCount{Category: g.Category, Count: g.Count})
	}
	return stats, nil
}
