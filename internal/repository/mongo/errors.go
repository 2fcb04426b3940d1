package mongo

import (
	"errors"
	"fmt"

	"oftalmonet/valeda-app/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// mapError converts driver errors into repository errors so callers never
// import the driver to classify a failure.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}
