package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/repository"
)

// OwnerRepository reads the owners collection maintained by the back office.
type OwnerRepository struct {
	coll *mongo.Collection
}

// NewOwnerRepository returns the owner directory backed by s.
func NewOwnerRepository(s *Store) *OwnerRepository {
	return &OwnerRepository{coll: s.db.Collection(ownersCollection)}
}

// GetOwner loads one owner.
func (r *OwnerRepository) GetOwner(ctx context.Context, id string) (*models.Owner, error) {
	var owner models.Owner
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&owner); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load owner %s: %w", id, err)
	}
	return &owner, nil
}

// ListOwners returns every owner sorted by name.
func (r *OwnerRepository) ListOwners(ctx context.Context) ([]models.Owner, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	var owners []models.Owner
	if err := cursor.All(ctx, &owners); err != nil {
		return nil, fmt.Errorf("failed to decode owners: %w", err)
	}
	return owners, nil
}

// InventoryRepository counts animal records in the animals collection.
type InventoryRepository struct {
	coll *mongo.Collection
}

// NewInventoryRepository returns the inventory counter backed by s.
func NewInventoryRepository(s *Store) *InventoryRepository {
	return &InventoryRepository{coll: s.db.Collection(animalsCollection)}
}

// CountLiveByOwnerAndType counts an owner's animals of one type that have not
// been sold. Records without a sold flag count as live.
func (r *InventoryRepository) CountLiveByOwnerAndType(ctx context.Context, ownerID string, animalType models.AnimalType) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"owner_id": ownerID,
		"type":     string(animalType),
		"sold":     bson.M{"$ne": true},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s animals: %w", animalType, err)
	}
	return n, nil
}
