package settings

import "context"

type StoreAPI interface {
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, in *Settings) error
}
