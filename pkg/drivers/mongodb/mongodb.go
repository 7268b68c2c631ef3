// Package mongodb implements the user repository on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

type userDocument struct {
	ID             bson.ObjectID `bson:"_id"`
	Name           string        `bson:"name"`
	Email          string        `bson:"email"`
	FavoriteNumber *int          `bson:"favoriteNumber,omitempty"`
}

func (d *userDocument) toUser() *userstore.User {
	return &userstore.User{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Email:          d.Email,
		FavoriteNumber: d.FavoriteNumber,
	}
}

// Repository is the document-store driver. The client connects lazily on
// first use. Only a successful connect is memoized; a failed attempt is
// retried on the next call.
type Repository struct {
	url        string
	dbName     string
	mu         sync.Mutex
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
}

var _ userstore.Repository = (*Repository)(nil)

// New creates the driver without connecting.
func New(connectionString, dbName string) *Repository {
	return &Repository{url: connectionString, dbName: dbName}
}

func (r *Repository) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(r.url))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	r.client = client
	r.database = client.Database(r.dbName)
	r.collection = r.database.Collection("users")
	slog.Info("mongodb connected", "database", r.dbName)
	return nil
}

// parseID maps the external string id to a native ObjectID. Malformed input
// reads as "no such document".
func parseID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return oid, true
}

func (r *Repository) Create(ctx context.Context, data *userstore.CreateUser) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	// Generated client-side so the id can be echoed back without a second
	// round trip.
	id := bson.NewObjectID()
	doc := userDocument{ID: id, Name: data.Name, Email: data.Email, FavoriteNumber: data.FavoriteNumber}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return userstore.BuildUser(id.Hex(), data), nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	var doc userDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toUser(), nil
}

func (r *Repository) Update(ctx context.Context, id string, data *userstore.UpdateUser) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	if data.Empty() {
		return r.FindByID(ctx, id)
	}

	set := bson.M{}
	if data.Name != nil {
		set["name"] = *data.Name
	}
	if data.Email != nil {
		set["email"] = *data.Email
	}
	if data.FavoriteNumber != nil {
		set["favoriteNumber"] = *data.FavoriteNumber
	}

	// Atomic find-and-modify returning the post-update document.
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return doc.toUser(), nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.connect(); err != nil {
		return false, err
	}

	oid, ok := parseID(id)
	if !ok {
		return false, nil
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if err := r.connect(); err != nil {
		return err
	}

	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete all users: %w", err)
	}
	return nil
}

func (r *Repository) HealthCheck(ctx context.Context) bool {
	if err := r.connect(); err != nil {
		return false
	}
	return r.database.RunCommand(ctx, bson.M{"ping": 1}).Err() == nil
}

func (r *Repository) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Disconnect(ctx)
	r.client = nil
	r.database = nil
	r.collection = nil
	if err != nil {
		return fmt.Errorf("failed to disconnect mongodb: %w", err)
	}
	slog.Info("mongodb disconnected")
	return nil
}
