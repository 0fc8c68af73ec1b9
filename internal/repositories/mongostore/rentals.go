package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

type rentalRepository struct {
	coll  *mongo.Collection
	books *mongo.Collection
	users *mongo.Collection
}

// statusFilter matches rentals whose effective status at now is status. An
// active rental past its due date counts as overdue.
func statusFilter(status models.RentalStatus, now time.Time) bson.M {
	switch status {
	case models.RentalStatusActive:
		return bson.M{"status": string(models.RentalStatusActive), "due_date": bson.M{"$gte": now}}
	case models.RentalStatusOverdue:
		return bson.M{"$or": bson.A{
			bson.M{"status": string(models.RentalStatusOverdue)},
			bson.M{"status": string(models.RentalStatusActive), "due_date": bson.M{"$lt": now}},
		}}
	default:
		return bson.M{"status": string(status)}
	}
}

func rentalFilter(filter repositories.RentalFilter) bson.M {
	q := bson.M{}
	if filter.Status != "" {
		q = statusFilter(filter.Status, utc(filter.Now))
	}
	if filter.UserID != uuid.Nil {
		q["user_id"] = filter.UserID.String()
	}
	if filter.BookID != uuid.Nil {
		q["book_id"] = filter.BookID.String()
	}
	return q
}

func (r *rentalRepository) Create(ctx context.Context, rental *models.Rental) error {
	for coll, id := range map[*mongo.Collection]uuid.UUID{r.users: rental.UserID, r.books: rental.BookID} {
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
		if err != nil {
			return translate(err)
		}
		if n == 0 {
			return repositories.ErrReferenced
		}
	}

	if rental.ID == uuid.Nil {
		rental.ID = uuid.New()
	}
	if rental.Status == "" {
		rental.Status = models.RentalStatusActive
	}
	ts := now()
	rental.CreatedAt, rental.UpdatedAt = ts, ts

	doc, err := toRentalDoc(rental)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(ctx, doc)
	return translate(err)
}

func (r *rentalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	rental, err := r.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	rentals := []models.Rental{*rental}
	if err := r.withRelations(ctx, rentals); err != nil {
		return nil, err
	}
	return &rentals[0], nil
}

// GetForUpdate loads the bare rental; Transition guards on its status.
func (r *rentalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var doc rentalDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model()
}

func (r *rentalRepository) List(ctx context.Context, filter repositories.RentalFilter) ([]models.Rental, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, rentalFilter(filter), opts)
	if err != nil {
		return nil, translate(err)
	}
	var docs []rentalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	rentals := make([]models.Rental, 0, len(docs))
	for _, d := range docs {
		rental, err := d.model()
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rental)
	}
	if err := r.withRelations(ctx, rentals); err != nil {
		return nil, err
	}
	return rentals, nil
}

// withRelations attaches the referenced book and user to every rental with
// one query per collection.
func (r *rentalRepository) withRelations(ctx context.Context, rentals []models.Rental) error {
	if len(rentals) == 0 {
		return nil
	}
	bookIDs := make(bson.A, 0, len(rentals))
	userIDs := make(bson.A, 0, len(rentals))
	for _, rental := range rentals {
		bookIDs = append(bookIDs, rental.BookID.String())
		userIDs = append(userIDs, rental.UserID.String())
	}

	cur, err := r.books.Find(ctx, bson.M{"_id": bson.M{"$in": bookIDs}})
	if err != nil {
		return translate(err)
	}
	var bookDocs []bookDoc
	if err := cur.All(ctx, &bookDocs); err != nil {
		return err
	}
	books := make(map[uuid.UUID]*models.Book, len(bookDocs))
	for _, d := range bookDocs {
		b, err := d.model()
		if err != nil {
			return err
		}
		books[b.ID] = b
	}

	cur, err = r.users.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return translate(err)
	}
	var userDocs []userDoc
	if err := cur.All(ctx, &userDocs); err != nil {
		return err
	}
	users := make(map[uuid.UUID]*models.User, len(userDocs))
	for _, d := range userDocs {
		u, err := d.model()
		if err != nil {
			return err
		}
		users[u.ID] = u
	}

	for i := range rentals {
		rentals[i].Book = books[rentals[i].BookID]
		rentals[i].User = users[rentals[i].UserID]
	}
	return nil
}

func (r *rentalRepository) Transition(ctx context.Context, rental *models.Rental, from models.RentalStatus) error {
	fee, err := toDecimal128(rental.LateFee)
	if err != nil {
		return err
	}
	var returned interface{}
	if rental.ReturnDate != nil {
		returned = utc(*rental.ReturnDate)
	}
	ts := now()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": rental.ID.String(), "status": string(from)},
		bson.M{"$set": bson.M{
			"status":      string(rental.Status),
			"return_date": returned,
			"late_fee":    fee,
			"updated_at":  ts,
		}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrConflict
	}
	rental.UpdatedAt = ts
	return nil
}

func (r *rentalRepository) CountByBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"book_id": bookID.String()})
	return n, translate(err)
}

func (r *rentalRepository) MarkOverdue(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"status": string(models.RentalStatusActive), "due_date": bson.M{"$lt": utc(at)}},
		bson.M{"$set": bson.M{"status": string(models.RentalStatusOverdue), "updated_at": now()}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

func (r *rentalRepository) Stats(ctx context.Context, at time.Time) (*models.RentalStats, error) {
	at = utc(at)
	stats := &models.RentalStats{}

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, translate(err)
	}
	stats.TotalRentals = total

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
		n, err := r.coll.CountDocuments(ctx, statusFilter(c.status, at))
		if err != nil {
			return nil, translate(err)
		}
		*c.dest = n
	}

	revenue, lateFees, err := r.sumReturned(ctx)
	if err != nil {
		return nil, err
	}
	stats.Revenue = revenue
	stats.TotalLateFees = lateFees
	return stats, nil
}

func (r *rentalRepository) sumReturned(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: string(models.RentalStatusReturned)}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total_price"}}},
			{Key: "late_fees", Value: bson.D{{Key: "$sum", Value: "$late_fee"}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, decimal.Zero, translate(err)
	}
	var sums []struct {
		Revenue  primitive.Decimal128 `bson:"revenue"`
		LateFees primitive.Decimal128 `bson:"late_fees"`
	}
	if err := cur.All(ctx, &sums); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if len(sums) == 0 {
		return decimal.Zero, decimal.Zero, nil
	}

	revenue, err := fromDecimal128(sums[0].Revenue)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	lateFees, err := fromDecimal128(sums[0].LateFees)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return revenue, lateFees, nil
}
