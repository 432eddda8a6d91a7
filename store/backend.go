package store

import (
	"context"
	"errors"
	"time"

	"github.com/mbolis/encuestas-pae/model"
)

var ErrNotFound = errors.New("response not found")

// Backend persists responses. Ids returned by Insert replace the locally
// generated ones.
type Backend interface {
	Insert(ctx context.Context, r model.Response) (model.Response, error)
	ListActive(ctx context.Context) ([]model.Response, error)
	ListDeleted(ctx context.Context) ([]model.Response, error)
	SoftDelete(ctx context.Context, id string, at time.Time) (model.Response, error)
	Restore(ctx context.Context, id string) (model.Response, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Snapshotter is the fallback storage: it stores both collections as a whole.
type Snapshotter interface {
	ListActive(ctx context.Context) ([]model.Response, error)
	ListDeleted(ctx context.Context) ([]model.Response, error)
	Snapshot(ctx context.Context, active, deleted []model.Response) error
}

type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

type Change struct {
	Op ChangeOp
	ID string
}

// Notifier is implemented by backends that publish changes to the response
// collection. The channel is closed once ctx is done.
type Notifier interface {
	Subscribe(ctx context.Context) <-chan Change
}
