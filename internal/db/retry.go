package db

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateKey is returned by stores when an insert violates a unique index.
var ErrDuplicateKey = errors.New("duplicate key")

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsDuplicateKeyError is a function that checks if an error is a duplicate key error.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// Try executes an operation with default retry settings for duplicate key errors.
// It uses DefaultMaxRetries and IsDuplicateKey.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsDuplicateKey)
}

// WithRetries executes an operation, retrying with an incremental backoff
// while it fails with a duplicate key error. It attempts the operation up to
// maxRetries+1 times.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if !isDuplicateKey(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsDuplicateKey recognizes ErrDuplicateKey as well as raw driver errors.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || IsMongoDuplicateKeyError(err) || IsPostgresUniqueViolation(err)
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, writeError := range bwe.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// IsPostgresUniqueViolation checks for SQLSTATE 23505.
func IsPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
