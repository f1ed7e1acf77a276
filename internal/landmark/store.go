package landmark

import "context"

// Landmark is one named waypoint, scoped to a single adapter.
type Landmark struct {
	Pos     string `json:"pos"`
	Desc    string `json:"desc"`
	Creator string `json:"creator"`
}

// Store persists landmarks per adapter. Names are unique within an adapter.
type Store interface {
	All(ctx context.Context, adapterID string) (map[string]Landmark, error)
	Get(ctx context.Context, adapterID, name string) (Landmark, bool, error)
	Put(ctx context.Context, adapterID, name string, lm Landmark) error
	Delete(ctx context.Context, adapterID, name string) (bool, error)
}
