package types

import "time"

// Link is a persisted relationship instance between two entity instances,
// tagged by their entity type names. The pair is unordered: a link created
// from A to B is found and deleted equally well from B's side.
type Link struct {
	// LinkID is a UUID v7, generated on creation.
	LinkID string

	FromType string
	FromID   string
	ToType   string
	ToID     string

	// CreatedAt is the timestamp of creation.
	CreatedAt time.Time
}

// Joins reports whether the link connects the two given endpoints,
// regardless of which side it was created from.
func (l *Link) Joins(aType, aID, bType, bID string) bool {
	if l.FromType == aType && l.FromID == aID && l.ToType == bType && l.ToID == bID {
		return true
	}
	return l.FromType == bType && l.FromID == bID && l.ToType == aType && l.ToID == aID
}

// Opposite returns the endpoint opposite the given one. ok is false when
// the link does not touch that endpoint at all.
func (l *Link) Opposite(entityType, id string) (otherType, otherID string, ok bool) {
	if l.FromType == entityType && l.FromID == id {
		return l.ToType, l.ToID, true
	}
	if l.ToType == entityType && l.ToID == id {
		return l.FromType, l.FromID, true
	}
	return "", "", false
}
