package common

import "github.com/google/uuid"

// ENTITYID_LENGTH is the length of Entity IDs
const ENTITYID_LENGTH = 36

// EntityID type
type EntityID string

// IsNil returns if EntityID is nil
func (id EntityID) IsNil() bool {
	return id == ""
}

// GenEntityID generates a new EntityID
func GenEntityID() EntityID {
	return EntityID(uuid.New().String())
}
