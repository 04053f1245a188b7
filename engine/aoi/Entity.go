package aoi

import "github.com/xiaonanln/tilespace/engine/common"

// Entity is anything the index can track. Implementations must be comparable, usually pointers.
type Entity interface {
	ID() common.EntityID
	GetPosition() Vector3
}
