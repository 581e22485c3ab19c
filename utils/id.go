package utils

import "go.mongodb.org/mongo-driver/bson/primitive"

// IsValidID reports whether s is a well-formed record identifier (24 hex characters).
func IsValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// ParseID converts s to an ObjectID, reporting false for malformed input.
func ParseID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
