package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/store"
	"github.com/pthm-cable/signals/systems"
)

// NewStateID returns a fresh random ID for a state or chunk.
func NewStateID() string {
	return uuid.NewString()
}

// snapshotState stops the clock, captures the engine and resumes it if it
// was running. Runs on the frame goroutine.
func snapshotState(e *engine.Engine) (engine.State, error) {
	if e.State() == engine.StateUninitialized {
		return engine.State{}, engine.ErrNotInitialized
	}
	wasRunning := e.State() == engine.StateRunning
	if err := e.Stop(); err != nil {
		return engine.State{}, err
	}
	st := e.Save()
	if wasRunning {
		e.Start()
	}
	return st, nil
}

// Save stores the current engine state under id, or under a fresh ID when
// id is empty.
func (d *Driver) Save(ctx context.Context, id string) (store.Meta, error) {
	if d.store == nil {
		return store.Meta{}, ErrNoStore
	}
	if id == "" {
		id = NewStateID()
	}
	var st engine.State
	err := d.Do(ctx, func(e *engine.Engine) (err error) {
		st, err = snapshotState(e)
		return err
	})
	if err != nil {
		return store.Meta{}, fmt.Errorf("save %s: %w", id, err)
	}
	meta, err := d.store.SaveState(ctx, id, st)
	if err != nil {
		return store.Meta{}, err
	}
	d.log.Info("state saved", "id", meta.ID, "nodes", meta.Nodes, "links", meta.Links)
	return meta, nil
}

// saveDirect saves without going through the frame queue. Only valid when
// no frame loop is running.
func (d *Driver) saveDirect(ctx context.Context, id string) (store.Meta, error) {
	if d.store == nil {
		return store.Meta{}, ErrNoStore
	}
	st, err := snapshotState(d.eng)
	if err != nil {
		return store.Meta{}, fmt.Errorf("save %s: %w", id, err)
	}
	return d.store.SaveState(ctx, id, st)
}

// Load replaces the graph with the stored state id. The engine keeps
// running only if it was running before.
func (d *Driver) Load(ctx context.Context, id string) error {
	if d.store == nil {
		return ErrNoStore
	}
	st, err := d.store.LoadState(ctx, id)
	if err != nil {
		return err
	}
	return d.Do(ctx, func(e *engine.Engine) error {
		d.restore(st)
		return nil
	})
}

// LoadDirect is Load for a driver whose frame loop has not started yet.
// The engine is left stopped.
func (d *Driver) LoadDirect(ctx context.Context, id string) error {
	if d.store == nil {
		return ErrNoStore
	}
	st, err := d.store.LoadState(ctx, id)
	if err != nil {
		return err
	}
	d.restore(st)
	d.publish()
	return nil
}

func (d *Driver) restore(st engine.State) {
	wasRunning := d.eng.State() == engine.StateRunning
	d.eng.Load(st)
	if d.layout != nil {
		d.layout = systems.NewLayout(layoutConfig(d.cfg))
	}
	if d.particles != nil {
		d.particles.Reset()
		d.refill = true
	}
	if wasRunning {
		d.eng.Start()
	}
}

// SaveChunk stores the subgraph rooted at ids (with contained descendants
// and the links among them) under id, or a fresh ID when id is empty.
func (d *Driver) SaveChunk(ctx context.Context, id string, ids []engine.NodeID) (store.Meta, error) {
	if d.store == nil {
		return store.Meta{}, ErrNoStore
	}
	if id == "" {
		id = "chunk-" + NewStateID()
	}
	var chunk engine.State
	err := d.Do(ctx, func(e *engine.Engine) error {
		if e.State() == engine.StateUninitialized {
			return engine.ErrNotInitialized
		}
		chunk = e.Extract(ids)
		return nil
	})
	if err != nil {
		return store.Meta{}, fmt.Errorf("save chunk %s: %w", id, err)
	}
	return d.store.SaveChunk(ctx, id, chunk)
}

// InjectChunk grafts the stored chunk id into the graph centred on (x, y)
// in engine coordinates. NumNodes grows by the chunk's live nodes when the
// graph would otherwise exceed it. It returns the new live node IDs.
func (d *Driver) InjectChunk(ctx context.Context, id string, x, y float64) ([]engine.NodeID, error) {
	if d.store == nil {
		return nil, ErrNoStore
	}
	chunk, err := d.store.LoadChunk(ctx, id)
	if err != nil {
		return nil, err
	}
	var ids []engine.NodeID
	err = d.Do(ctx, func(e *engine.Engine) (ierr error) {
		ids, ierr = InjectChunk(e, chunk, x, y)
		return ierr
	})
	return ids, err
}

// InjectChunk grafts chunk into e and raises NumNodes when needed.
func InjectChunk(e *engine.Engine, chunk engine.State, x, y float64) ([]engine.NodeID, error) {
	ids, err := e.Graft(chunk, x, y)
	if err != nil {
		return ids, err
	}
	if cfg := e.Config(); e.LiveCount() > cfg.NumNodes {
		if err := e.Control(engine.SetNumNodes{N: cfg.NumNodes + len(ids)}); err != nil {
			return ids, err
		}
	}
	return ids, nil
}
