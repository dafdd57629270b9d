// Package registry persists uploaded containers in a pebble database keyed
// by KSUID, so listings come back in upload order.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/goccy/go-json"
	"github.com/segmentio/ksuid"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/pkg/cisa"
)

var (
	ErrNotFound = errors.New("registry: container not found")
	ErrInvalid  = errors.New("registry: not a valid container")
)

var (
	metaPrefix = []byte("m/")
	dataPrefix = []byte("d/")
)

// Entry is the stored summary of one container.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Kernels   []string  `json:"kernels"`
	Functions []string  `json:"functions"`
	Globals   int       `json:"globals"`
	Size      int       `json:"size"`
	Created   time.Time `json:"created"`
}

type Registry struct {
	db  *pebble.DB
	log logger.Logger
}

// Open opens or creates a registry rooted at dir.
func Open(dir string, log logger.Logger) (*Registry, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", dir, err)
	}
	log.Debug("registry opened", "dir", dir)
	return &Registry{db: db, log: log}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

func key(prefix []byte, id ksuid.KSUID) []byte {
	return append(bytes.Clone(prefix), id.String()...)
}

// Put validates data as a container and stores it with its summary.
func (r *Registry) Put(name string, data []byte) (Entry, error) {
	c, err := cisa.Parse(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	id := ksuid.New()
	e := Entry{
		ID:      id.String(),
		Name:    name,
		Version: c.Version().String(),
		Globals: len(c.GlobalVariables()),
		Size:    len(data),
		Created: id.Time().UTC(),
	}
	for _, k := range c.Kernels() {
		e.Kernels = append(e.Kernels, k.Name())
	}
	for _, f := range c.Functions() {
		e.Functions = append(e.Functions, f.Name())
	}
	meta, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}

	b := r.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := b.Set(key(metaPrefix, id), meta, nil); err != nil {
		return Entry{}, err
	}
	if err := b.Set(key(dataPrefix, id), data, nil); err != nil {
		return Entry{}, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return Entry{}, fmt.Errorf("store container %s: %w", e.ID, err)
	}
	r.log.Info("container stored", "id", e.ID, "name", name, "version", e.Version, "bytes", len(data))
	return e, nil
}

func parseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, ErrNotFound
	}
	return id, nil
}

// get copies the value out before the closer releases it.
func (r *Registry) get(k []byte) ([]byte, error) {
	v, closer, err := r.db.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	return bytes.Clone(v), nil
}

// Entry returns the stored summary for id.
func (r *Registry) Entry(id string) (Entry, error) {
	kid, err := parseID(id)
	if err != nil {
		return Entry{}, err
	}
	raw, err := r.get(key(metaPrefix, kid))
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return e, nil
}

// Data returns the raw container bytes for id.
func (r *Registry) Data(id string) ([]byte, error) {
	kid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.get(key(dataPrefix, kid))
}

// Container parses the stored bytes for id.
func (r *Registry) Container(id string) (*cisa.Container, error) {
	data, err := r.Data(id)
	if err != nil {
		return nil, err
	}
	return cisa.Parse(data)
}

// List returns every entry, oldest first.
func (r *Registry) List() ([]Entry, error) {
	upper := append(bytes.Clone(metaPrefix[:len(metaPrefix)-1]), metaPrefix[len(metaPrefix)-1]+1)
	it, err := r.db.NewIter(&pebble.IterOptions{LowerBound: metaPrefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var out []Entry
	for it.First(); it.Valid(); it.Next() {
		var e Entry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", it.Key(), err)
		}
		out = append(out, e)
	}
	return out, it.Error()
}

// Delete removes id and its data.
func (r *Registry) Delete(id string) error {
	kid, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := r.get(key(metaPrefix, kid)); err != nil {
		return err
	}
	b := r.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := b.Delete(key(metaPrefix, kid), nil); err != nil {
		return err
	}
	if err := b.Delete(key(dataPrefix, kid), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	r.log.Info("container deleted", "id", id)
	return nil
}
