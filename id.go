package debtbook

import "github.com/xraph/debtbook/id"

// ID is the primary identifier type for all debtbook entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
