package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsObjectID reports whether s is a document identifier: exactly 24 hex
// characters. Anything else is treated as a name fragment by lookups.
func IsObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// NewID returns a fresh identifier in the 24 hex character form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
