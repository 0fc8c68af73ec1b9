// Package mongostore implements repositories.Store on MongoDB.
//
// MongoDB has no row locks or foreign keys. Stock writes rely on the same
// compare-and-swap filters as the relational store, references are checked
// before a rental is inserted, and multi-document changes run in a session
// transaction, which requires a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bookrental/internal/repositories"
)

const (
	usersCollection   = "users"
	booksCollection   = "books"
	rentalsCollection = "rentals"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repositories.Store = (*Store)(nil)

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		booksCollection: {
			{Keys: bson.D{{Key: "isbn", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		rentalsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "book_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Users() repositories.UserRepository {
	return &userRepository{coll: s.db.Collection(usersCollection)}
}

func (s *Store) Books() repositories.BookRepository {
	return &bookRepository{coll: s.db.Collection(booksCollection)}
}

func (s *Store) Rentals() repositories.RentalRepository {
	return &rentalRepository{
		coll:  s.db.Collection(rentalsCollection),
		books: s.db.Collection(booksCollection),
		users: s.db.Collection(usersCollection),
	}
}

// Transaction runs fn in a session transaction. Repository calls join it
// through the session context handed to fn.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// DropAll removes every collection owned by the store. Used by tests.
func (s *Store) DropAll(ctx context.Context) error {
	for _, coll := range []string{usersCollection, booksCollection, rentalsCollection} {
		if err := s.db.Collection(coll).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", repositories.ErrDuplicateKey, err)
	default:
		return err
	}
}

func now() time.Time {
	return utc(time.Now())
}
