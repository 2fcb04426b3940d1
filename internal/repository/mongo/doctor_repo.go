package mongo

import (
	"context"
	"errors"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const doctorCollectionName = "doctors"

// mongoDoctorRepository implements repository.DoctorRepository
type mongoDoctorRepository struct {
	collection *mongo.Collection
}

// NewMongoDoctorRepository creates a new Doctor repository backed by MongoDB.
func NewMongoDoctorRepository(db *mongo.Database) repository.DoctorRepository {
	return &mongoDoctorRepository{
		collection: db.Collection(doctorCollectionName),
	}
}

// Create inserts a doctor. A name that is already taken yields ErrDuplicate.
func (r *mongoDoctorRepository) Create(ctx context.Context, d *domain.Doctor) (primitive.ObjectID, error) {
	// The unique index is built in the background at startup, so check first.
	if err := r.ensureNameFree(ctx, d.Name, primitive.NilObjectID); err != nil {
		return primitive.NilObjectID, err
	}

	d.ID = primitive.NewObjectID()
	d.CreationDate = now()

	result, err := r.collection.InsertOne(ctx, d)
	if err != nil {
		return primitive.NilObjectID, mapError(err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a doctor by ID, active or not.
func (r *mongoDoctorRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Doctor, error) {
	var d domain.Doctor
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

// ListActive returns every active doctor ordered by name.
func (r *mongoDoctorRepository) ListActive(ctx context.Context) ([]domain.Doctor, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.find(ctx, bson.M{"isActive": true}, findOptions)
}

// SearchActiveByName matches active doctors whose name contains query,
// ignoring case.
func (r *mongoDoctorRepository) SearchActiveByName(ctx context.Context, query string, limit int64) ([]domain.Doctor, error) {
	filter := bson.M{
		"isActive": true,
		"name":     substringRegex(query),
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(limit)
	return r.find(ctx, filter, findOptions)
}

func (r *mongoDoctorRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Doctor, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	doctors := []domain.Doctor{}
	if err = cursor.All(ctx, &doctors); err != nil {
		return nil, mapError(err)
	}
	return doctors, nil
}

// Update sets the fields present in patch and returns the stored result.
func (r *mongoDoctorRepository) Update(ctx context.Context, id primitive.ObjectID, patch domain.DoctorPatch) (*domain.Doctor, error) {
	set := bson.M{}
	if patch.Name != nil {
		if err := r.ensureNameFree(ctx, *patch.Name, id); err != nil {
			return nil, err
		}
		set["name"] = *patch.Name
	}
	if patch.Specialization != nil {
		set["specialization"] = *patch.Specialization
	}
	if patch.IsActive != nil {
		set["isActive"] = *patch.IsActive
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	findOptions := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Doctor
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, findOptions).Decode(&updated)
	if err != nil {
		return nil, mapError(err)
	}
	return &updated, nil
}

// InsertIfMissing upserts d by name without touching an existing record.
func (r *mongoDoctorRepository) InsertIfMissing(ctx context.Context, d domain.Doctor) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"specialization": d.Specialization,
			"isActive":       d.IsActive,
			"creationDate":   now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"name": d.Name}, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent seed won the race; the record exists either way.
		return nil
	}
	return mapError(err)
}

// ensureNameFree returns ErrDuplicate when another doctor already uses name.
func (r *mongoDoctorRepository) ensureNameFree(ctx context.Context, name string, self primitive.ObjectID) error {
	filter := bson.M{"name": name}
	if !self.IsZero() {
		filter["_id"] = bson.M{"$ne": self}
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return mapError(err)
	}
	if n > 0 {
		return repository.ErrDuplicate
	}
	return nil
}

// EnsureDoctorIndexes creates the unique name index and the active filter index.
func EnsureDoctorIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("doctor_name_unique"),
		},
		{
			Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "name", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return mapError(err)
}
