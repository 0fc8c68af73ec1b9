package mongostore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookrental/internal/models"
	"bookrental/internal/repositories"
)

type userRepository struct {
	coll *mongo.Collection
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts

	_, err := r.coll.InsertOne(ctx, toUserDoc(user))
	return translate(err)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model()
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID.String()}, bson.M{"$set": bson.M{
		"name":       user.Name,
		"phone":      user.Phone,
		"address":    user.Address,
		"updated_at": user.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.model()
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}
