package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	invoicesCollection   = "owner_invoices"
	parametersCollection = "billing_parameters"
	ownersCollection     = "owners"
	animalsCollection    = "animals"
	locksCollection      = "billing_locks"
)

// Store owns the MongoDB connection shared by the billing repositories.
type Store struct {
	client         *mongo.Client
	db             *mongo.Database
	logger         *zap.Logger
	noTransactions bool
}

// Connect opens and verifies a MongoDB connection.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	store.noTransactions = !supportsTransactions(ctx, client)
	if store.noTransactions {
		logger.Warn("mongodb deployment has no replica set; invoice generation relies on locks and the unique index only")
	}
	return store, nil
}

// supportsTransactions reports whether the deployment is a replica set or a
// sharded cluster. Standalone servers reject multi-document transactions.
func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// EnsureIndexes creates the indexes billing correctness depends on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(invoicesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "period_year", Value: 1}, {Key: "period_month", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_owner_period"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create invoice indexes: %w", err)
	}

	_, err = s.db.Collection(animalsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "type", Value: 1}, {Key: "sold", Value: 1}},
		Options: options.Index().SetName("owner_type_sold"),
	})
	if err != nil {
		return fmt.Errorf("create animal indexes: %w", err)
	}

	_, err = s.db.Collection(locksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("lease_expiry"),
	})
	if err != nil {
		return fmt.Errorf("create lock indexes: %w", err)
	}
	return nil
}

// WithinTransaction runs fn in a multi-document transaction. The context
// passed to fn carries the session and must be used for every call that
// belongs to the transaction. The transaction is committed once; a failed
// commit is returned instead of re-running fn, so an email is never sent twice.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.noTransactions {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}
		if err := fn(sc); err != nil {
			if abortErr := session.AbortTransaction(context.WithoutCancel(sc)); abortErr != nil {
				s.logger.Warn("abort transaction failed", zap.Error(abortErr))
			}
			return err
		}
		if err := session.CommitTransaction(context.WithoutCancel(sc)); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
