package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/store"
)

// ErrEmptyChunk is returned when none of the requested nodes exist.
var ErrEmptyChunk = errors.New("host: chunk selection is empty")

// Offline edits stored states without a frame loop. Each call loads a
// state into a private, stopped engine.
type Offline struct {
	Config *config.Config
	Store  store.Store
	Logger *slog.Logger
}

func (o *Offline) open(ctx context.Context, stateID string) (*engine.Engine, error) {
	geom, err := NewGeometry(o.Config)
	if err != nil {
		return nil, err
	}
	st, err := o.Store.LoadState(ctx, stateID)
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", stateID, err)
	}
	log := o.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := engine.New(o.Config.EngineConfig(), engine.WithGeometry(geom), engine.WithLogger(log))
	e.Load(st)
	return e, nil
}

// ExtractChunk stores the subgraph of stateID rooted at ids as chunk
// chunkID, or under a fresh ID when chunkID is empty.
func (o *Offline) ExtractChunk(ctx context.Context, stateID string, ids []engine.NodeID, chunkID string) (store.Meta, error) {
	e, err := o.open(ctx, stateID)
	if err != nil {
		return store.Meta{}, err
	}
	chunk := e.Extract(ids)
	if len(chunk.Nodes) == 0 {
		return store.Meta{}, fmt.Errorf("extract from %s: %w", stateID, ErrEmptyChunk)
	}
	if chunkID == "" {
		chunkID = "chunk-" + NewStateID()
	}
	return o.Store.SaveChunk(ctx, chunkID, chunk)
}

// Inject grafts chunkID into stateID at (x, y) and saves the result as
// outID. An empty outID overwrites stateID.
func (o *Offline) Inject(ctx context.Context, stateID, chunkID string, x, y float64, outID string) (store.Meta, []engine.NodeID, error) {
	chunk, err := o.Store.LoadChunk(ctx, chunkID)
	if err != nil {
		return store.Meta{}, nil, fmt.Errorf("load chunk %s: %w", chunkID, err)
	}
	e, err := o.open(ctx, stateID)
	if err != nil {
		return store.Meta{}, nil, err
	}
	ids, err := InjectChunk(e, chunk, x, y)
	if err != nil {
		return store.Meta{}, ids, err
	}
	if outID == "" {
		outID = stateID
	}
	meta, err := o.Store.SaveState(ctx, outID, e.Save())
	return meta, ids, err
}
