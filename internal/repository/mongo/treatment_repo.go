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

const treatmentCollectionName = "treatments"

// mongoTreatmentRepository implements repository.TreatmentRepository
type mongoTreatmentRepository struct {
	collection *mongo.Collection
}

// NewMongoTreatmentRepository creates a new Treatment repository backed by MongoDB.
func NewMongoTreatmentRepository(db *mongo.Database) repository.TreatmentRepository {
	return &mongoTreatmentRepository{
		collection: db.Collection(treatmentCollectionName),
	}
}

// Create inserts a new treatment. The store assigns the id and both timestamps.
func (r *mongoTreatmentRepository) Create(ctx context.Context, t *domain.Treatment) (primitive.ObjectID, error) {
	t.ID = primitive.NewObjectID()
	ts := now()
	t.CreationDate = ts
	t.LastModified = ts

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		return primitive.NilObjectID, mapError(err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a treatment by its ID.
func (r *mongoTreatmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Treatment, error) {
	var t domain.Treatment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// Search returns one page of matching treatments and the total match count.
func (r *mongoTreatmentRepository) Search(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) ([]domain.Treatment, int64, error) {
	opts = opts.Normalize()
	filter := treatmentFilter(filters)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapError(err)
	}

	cursor, err := r.collection.Find(ctx, filter, treatmentFindOptions(opts))
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer cursor.Close(ctx)

	treatments := []domain.Treatment{}
	if err = cursor.All(ctx, &treatments); err != nil {
		return nil, 0, mapError(err)
	}
	return treatments, total, nil
}

// Update replaces the mutable fields of t and stamps lastModified.
// creationDate is never written.
func (r *mongoTreatmentRepository) Update(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error) {
	update := bson.M{
		"$set": bson.M{
			"patient":               t.Patient,
			"doctor":                t.Doctor,
			"treatmentType":         t.TreatmentType,
			"sessions":              t.Sessions,
			"additionalIndications": t.AdditionalIndications,
			"lastModified":          now(),
		},
	}
	findOptions := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Treatment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": t.ID}, update, findOptions).Decode(&updated)
	if err != nil {
		return nil, mapError(err)
	}
	return &updated, nil
}

// Delete removes a treatment. It reports false when no document matched.
func (r *mongoTreatmentRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, mapError(err)
	}
	return result.DeletedCount > 0, nil
}

type typeTallyDoc struct {
	Type      domain.TreatmentType `bson:"_id"`
	Count     int64                `bson:"count"`
	Completed int64                `bson:"completed"`
}

// TallyByType counts treatments and dated sessions per treatment type in a
// single aggregation.
func (r *mongoTreatmentRepository) TallyByType(ctx context.Context) ([]domain.TypeTally, error) {
	cursor, err := r.collection.Aggregate(ctx, tallyPipeline())
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	var docs []typeTallyDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, mapError(err)
	}

	tallies := make([]domain.TypeTally, 0, len(docs))
	for _, d := range docs {
		tallies = append(tallies, domain.TypeTally{
			Type:              d.Type,
			Count:             d.Count,
			CompletedSessions: d.Completed,
		})
	}
	return tallies, nil
}

func tallyPipeline() mongo.Pipeline {
	completed := bson.D{{Key: "$size", Value: bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$sessions", bson.A{}}}}},
		{Key: "as", Value: "s"},
		{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$$s.date"}}, "date"}}}},
	}}}}}

	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$treatmentType"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "completed", Value: bson.D{{Key: "$sum", Value: completed}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// EnsureTreatmentIndexes creates the indexes backing the search filters and
// every sortable key.
func EnsureTreatmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "lastModified", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "creationDate", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "patient.name", Value: 1}}},
		{Keys: bson.D{{Key: "doctor.name", Value: 1}}},
		{Keys: bson.D{{Key: "treatmentType", Value: 1}}},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return mapError(err)
}
