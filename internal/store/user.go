package store

import (
	"context"
	"errors"
	"time"

	"github.com/eventcrm/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileUpdate carries the mutable profile fields. Empty fields are left
// untouched.
type ProfileUpdate struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	CompanyName string
}

// UserRepository handles persistence for users in the "users" collection.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection("users")}
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (types.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var user types.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields of the update and returns the
// resulting record.
func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (types.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.FirstName != "" {
		set["firstName"] = update.FirstName
	}
	if update.LastName != "" {
		set["lastName"] = update.LastName
	}
	if update.PhoneNumber != "" {
		set["phoneNumber"] = update.PhoneNumber
	}
	if update.CompanyName != "" {
		set["companyName"] = update.CompanyName
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password": passwordHash, "updatedAt": time.Now()},
	})
	return err
}

// SetResetToken stores the reset-token verifier and its expiry. There is a
// single verifier slot per user, so a new request overwrites any prior one.
func (r *UserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, verifier string, expires time.Time) error {
	_, err := r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"resetPasswordToken":   verifier,
			"resetPasswordExpires": expires,
			"updatedAt":            time.Now(),
		},
	})
	return err
}

// ConsumeResetToken matches an unexpired verifier and, in the same update,
// replaces the password hash and clears both reset fields. ErrNotFound means
// no record holds the verifier or it has expired.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, verifier string, now time.Time, passwordHash string) (types.User, error) {
	filter := bson.M{
		"resetPasswordToken":   verifier,
		"resetPasswordExpires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now()},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

// RecordLogin stamps the last successful authentication.
func (r *UserRepository) RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"lastLogin": at, "updatedAt": time.Now()},
	})
	return err
}

// SetActive flips the active flag. Deactivated accounts fail authentication;
// reactivation is an administrative action.
func (r *UserRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isActive": active, "updatedAt": time.Now()},
	})
	return err
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (types.User, error) {
	var user types.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
