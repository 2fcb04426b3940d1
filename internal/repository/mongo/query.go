package mongo

import (
	"regexp"

	"oftalmonet/valeda-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// treatmentFilter builds the query document for a search. Each supplied
// filter adds one predicate; an empty SearchFilters matches everything.
func treatmentFilter(f domain.SearchFilters) bson.M {
	filter := bson.M{}
	if f.Name != "" {
		filter["patient.name"] = substringRegex(f.Name)
	}
	if f.Doctor != "" {
		filter["doctor.name"] = substringRegex(f.Doctor)
	}
	if f.TreatmentType != "" {
		filter["treatmentType"] = string(f.TreatmentType)
	}
	if f.DateFrom != nil || f.DateTo != nil {
		creation := bson.M{}
		if f.DateFrom != nil {
			creation["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			creation["$lte"] = *f.DateTo
		}
		filter["creationDate"] = creation
	}
	return filter
}

// substringRegex matches s literally anywhere in the field, ignoring case.
func substringRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// treatmentSort orders by the requested key and breaks ties by _id in the
// same direction, so consecutive pages never overlap.
func treatmentSort(opts domain.PaginationOptions) bson.D {
	dir := -1
	if opts.SortOrder == domain.SortAsc {
		dir = 1
	}
	return bson.D{{Key: opts.SortBy, Value: dir}, {Key: "_id", Value: dir}}
}

func treatmentFindOptions(opts domain.PaginationOptions) *options.FindOptions {
	return options.Find().
		SetSort(treatmentSort(opts)).
		SetSkip(opts.Skip()).
		SetLimit(int64(opts.Limit))
}
