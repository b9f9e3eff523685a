package consistency

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/mongoclient"
)

// Store is the data path of one connection, either to the whole set or to a single member.
type Store interface {
	CreateCollection(ctx context.Context, database, collection string) error
	InsertMany(ctx context.Context, database, collection string, docs []TestDocument) (int, error)
	// Find returns every document of the collection ordered by _id, read from the members rp selects.
	Find(ctx context.Context, database, collection string, rp *readpref.ReadPref) ([]TestDocument, error)
	Close(ctx context.Context) error
}

// Dialer opens stores.
type Dialer interface {
	// ReplicaSet connects to the set as a whole; writes go to the primary.
	ReplicaSet(ctx context.Context) (Store, error)
	// Direct connects to exactly one member.
	Direct(ctx context.Context, host string) (Store, error)
}

// MongoDialer dials real servers with the mongo driver.
type MongoDialer struct {
	Hosts    []string
	SetName  string
	Username string
	Password string
	Timeout  time.Duration
}

func (d MongoDialer) appliers() []mongoclient.OptionApplier {
	appliers := []mongoclient.OptionApplier{
		mongoclient.WithHosts(d.Hosts),
		mongoclient.WithReplicaSet(d.SetName),
		mongoclient.WithTimeouts(d.Timeout),
	}
	if d.Username != "" {
		appliers = append(appliers, mongoclient.WithScram(d.Username, d.Password))
	}
	return appliers
}

func (d MongoDialer) ReplicaSet(ctx context.Context) (Store, error) {
	client, err := mongoclient.Connect(ctx, d.appliers()...)
	if err != nil {
		return nil, err
	}
	return mongoStore{client: client}, nil
}

func (d MongoDialer) Direct(ctx context.Context, host string) (Store, error) {
	client, err := mongoclient.Connect(ctx, append(d.appliers(), mongoclient.WithDirect(host))...)
	if err != nil {
		return nil, err
	}
	return mongoStore{client: client}, nil
}

type mongoStore struct {
	client *mongo.Client
}

func (m mongoStore) CreateCollection(ctx context.Context, database, collection string) error {
	return errors.Wrapf(m.client.Database(database).CreateCollection(ctx, collection), "could not create collection %s.%s", database, collection)
}

func (m mongoStore) InsertMany(ctx context.Context, database, collection string, docs []TestDocument) (int, error) {
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	res, err := m.client.Database(database).Collection(collection).InsertMany(ctx, batch)
	if err != nil {
		return 0, errors.Wrapf(err, "could not insert into %s.%s", database, collection)
	}
	return len(res.InsertedIDs), nil
}

func (m mongoStore) Find(ctx context.Context, database, collection string, rp *readpref.ReadPref) ([]TestDocument, error) {
	coll := m.client.Database(database).Collection(collection, options.Collection().SetReadPreference(rp))
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s.%s", database, collection)
	}
	var docs []TestDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s.%s", database, collection)
	}
	return docs, nil
}

func (m mongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
