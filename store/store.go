// Package store persists saved engine states and graph chunks.
//
// States and chunks share one record layout: a Meta index entry plus the
// JSON-encoded engine.State. A chunk is a State with an empty config.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/engine"
)

var (
	// ErrNotFound is returned when no record has the requested ID.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidID is returned for empty IDs or IDs containing path
	// separators.
	ErrInvalidID = errors.New("store: invalid id")
)

// Kind separates saved states from chunks.
type Kind string

const (
	KindState Kind = "state"
	KindChunk Kind = "chunk"
)

// Meta is the index entry of a saved record.
type Meta struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Nodes     int       `json:"nodes"`
	Links     int       `json:"links"`
}

// Store persists states and chunks. Lists are ordered newest first.
type Store interface {
	SaveState(ctx context.Context, id string, st engine.State) (Meta, error)
	LoadState(ctx context.Context, id string) (engine.State, error)
	DeleteState(ctx context.Context, id string) error
	ListStates(ctx context.Context) ([]Meta, error)

	SaveChunk(ctx context.Context, id string, c engine.State) (Meta, error)
	LoadChunk(ctx context.Context, id string) (engine.State, error)
	DeleteChunk(ctx context.Context, id string) error
	ListChunks(ctx context.Context) ([]Meta, error)

	Close() error
}

// backend is the raw record storage each implementation provides.
type backend interface {
	put(ctx context.Context, kind Kind, m Meta, data []byte) error
	get(ctx context.Context, kind Kind, id string) ([]byte, error)
	remove(ctx context.Context, kind Kind, id string) error
	list(ctx context.Context, kind Kind) ([]Meta, error)
}

// records implements the typed Store methods over a backend.
type records struct {
	b   backend
	now func() time.Time
}

func (r records) save(ctx context.Context, kind Kind, id string, st engine.State) (Meta, error) {
	if err := ValidateID(id); err != nil {
		return Meta{}, err
	}
	var buf bytes.Buffer
	if err := engine.WriteState(&buf, st); err != nil {
		return Meta{}, fmt.Errorf("save %s %s: %w", kind, id, err)
	}
	m := Meta{
		ID:        id,
		Timestamp: r.now().UTC(),
		Nodes:     len(st.Nodes),
		Links:     len(st.Links),
	}
	if err := r.b.put(ctx, kind, m, buf.Bytes()); err != nil {
		return Meta{}, fmt.Errorf("save %s %s: %w", kind, id, err)
	}
	return m, nil
}

func (r records) load(ctx context.Context, kind Kind, id string) (engine.State, error) {
	if err := ValidateID(id); err != nil {
		return engine.State{}, err
	}
	data, err := r.b.get(ctx, kind, id)
	if err != nil {
		return engine.State{}, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	st, err := engine.ReadState(bytes.NewReader(data))
	if err != nil {
		return engine.State{}, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return st, nil
}

func (r records) delete(ctx context.Context, kind Kind, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := r.b.remove(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

func (r records) index(ctx context.Context, kind Kind) ([]Meta, error) {
	metas, err := r.b.list(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	sortNewestFirst(metas)
	return metas, nil
}

func (r records) SaveState(ctx context.Context, id string, st engine.State) (Meta, error) {
	return r.save(ctx, KindState, id, st)
}

func (r records) LoadState(ctx context.Context, id string) (engine.State, error) {
	return r.load(ctx, KindState, id)
}

func (r records) DeleteState(ctx context.Context, id string) error {
	return r.delete(ctx, KindState, id)
}

func (r records) ListStates(ctx context.Context) ([]Meta, error) {
	return r.index(ctx, KindState)
}

func (r records) SaveChunk(ctx context.Context, id string, c engine.State) (Meta, error) {
	c.Config = engine.ConfigPatch{}
	return r.save(ctx, KindChunk, id, c)
}

func (r records) LoadChunk(ctx context.Context, id string) (engine.State, error) {
	return r.load(ctx, KindChunk, id)
}

func (r records) DeleteChunk(ctx context.Context, id string) error {
	return r.delete(ctx, KindChunk, id)
}

func (r records) ListChunks(ctx context.Context) ([]Meta, error) {
	return r.index(ctx, KindChunk)
}

// ValidateID rejects IDs that cannot name a file.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func sortNewestFirst(metas []Meta) {
	slices.SortFunc(metas, func(a, b Meta) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Open returns the backend named by cfg.Driver.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file":
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
