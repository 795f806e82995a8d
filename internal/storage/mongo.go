package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/free5gc/coresim/internal/logger"
)

// mongoStore backs the Store interface with MongoDB through the official
// driver. "First match" here follows the server's natural order, which is
// deployment-dependent; deterministic tie-breaks are only guaranteed by the
// memory backend.
type mongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoStore connects to the given DSN and verifies the connection with a
// ping before returning.
func NewMongoStore(ctx context.Context, dsn string, databaseName string) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "ping mongodb")
	}

	logger.StorageLog.Infof("connected to MongoDB database=%s", databaseName)

	return &mongoStore{
		client:   client,
		database: client.Database(databaseName),
	}, nil
}

// CreateOne implements Store.CreateOne.
func (store *mongoStore) CreateOne(ctx context.Context, collection string, document any) error {
	if _, err := store.database.Collection(collection).InsertOne(ctx, document); err != nil {
		return errors.Wrapf(err, "insert into collection %q", collection)
	}
	return nil
}

// FindOne implements Store.FindOne.
func (store *mongoStore) FindOne(
	ctx context.Context,
	collection string,
	filter Filter,
	out any,
) (bool, error) {
	result := store.database.Collection(collection).FindOne(ctx, bson.M(filter))
	if err := result.Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, errors.Wrapf(err, "find one in collection %q", collection)
	}
	return true, nil
}

// FindMany implements Store.FindMany.
func (store *mongoStore) FindMany(
	ctx context.Context,
	collection string,
	filter Filter,
	out any,
) error {
	cursor, err := store.database.Collection(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return errors.Wrapf(err, "find many in collection %q", collection)
	}
	if err := cursor.All(ctx, out); err != nil {
		return errors.Wrapf(err, "decode cursor from collection %q", collection)
	}
	return nil
}

// UpdateOne implements Store.UpdateOne.
func (store *mongoStore) UpdateOne(
	ctx context.Context,
	collection string,
	filter Filter,
	set map[string]any,
) (bool, error) {
	result, err := store.database.Collection(collection).UpdateOne(
		ctx,
		bson.M(filter),
		bson.M{"$set": set},
	)
	if err != nil {
		return false, errors.Wrapf(err, "update one in collection %q", collection)
	}
	return result.MatchedCount > 0, nil
}

// EnsureOne implements Store.EnsureOne.
func (store *mongoStore) EnsureOne(
	ctx context.Context,
	collection string,
	filter Filter,
	insert any,
) (bool, error) {
	result, err := store.database.Collection(collection).UpdateOne(
		ctx,
		bson.M(filter),
		bson.M{"$setOnInsert": insert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, errors.Wrapf(err, "ensure one in collection %q", collection)
	}
	return result.UpsertedCount > 0, nil
}

// IncrementOne implements Store.IncrementOne.
func (store *mongoStore) IncrementOne(
	ctx context.Context,
	collection string,
	filter Filter,
	inc map[string]int64,
	upsert bool,
) error {
	increments := make(bson.M, len(inc))
	for field, delta := range inc {
		increments[field] = delta
	}

	_, err := store.database.Collection(collection).UpdateOne(
		ctx,
		bson.M(filter),
		bson.M{"$inc": increments},
		options.Update().SetUpsert(upsert),
	)
	if err != nil {
		return errors.Wrapf(err, "increment one in collection %q", collection)
	}
	return nil
}

// CountDocuments implements Store.CountDocuments.
func (store *mongoStore) CountDocuments(
	ctx context.Context,
	collection string,
	filter Filter,
) (int64, error) {
	count, err := store.database.Collection(collection).CountDocuments(ctx, bson.M(filter))
	if err != nil {
		return 0, errors.Wrapf(err, "count documents in collection %q", collection)
	}
	return count, nil
}

// Close implements Store.Close.
func (store *mongoStore) Close(ctx context.Context) error {
	if err := store.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "disconnect from mongodb")
	}
	return nil
}
