package history

import "context"

type Store interface {
	AppendHistory(ctx context.Context, e *Entry) error
	ListHistory(ctx context.Context, account string, opts ListOpts) ([]*Entry, error)
}

// ListOpts filters ListHistory. An empty EntityTypes matches every entry.
// Results are ordered newest first.
type ListOpts struct {
	EntityTypes []string
	Limit       int
	Offset      int
}
