// Package local is the fallback storage: a directory of named entries, each
// holding one JSON encoded collection of responses.
package local

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/encuestas-pae/log"
	"github.com/mbolis/encuestas-pae/model"
	"github.com/mbolis/encuestas-pae/store"
)

const (
	ActiveKey  = "paesurvey_responses"
	DeletedKey = "paesurvey_deleted_responses"

	CorruptSuffix = ".corrupt"
)

type Storage struct {
	dir string
	mu  sync.Mutex
}

func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "local.open")
	}
	return &Storage{dir: dir}, nil
}

func (s *Storage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get decodes the entry key into v. A missing entry leaves v untouched.
func (s *Storage) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key, v)
}

// Set replaces the entry key with the encoding of v.
func (s *Storage) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(key, v)
}

// get moves an undecodable entry aside to <key>.json.corrupt, so the next
// write cannot overwrite it, and reports the decoding error.
func (s *Storage) get(key string, v any) error {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "local.get %s", key)
	}

	if err = json.Unmarshal(data, v); err != nil {
		if rerr := os.Rename(path, path+CorruptSuffix); rerr != nil {
			log.Errorf("local.get.quarantine %s: %s", key, rerr)
		} else {
			log.Warnf("local.get %s: undecodable entry moved to %s", key, path+CorruptSuffix)
		}
		return errors.Wrapf(err, "local.get %s", key)
	}
	return nil
}

func (s *Storage) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "local.set %s", key)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "local.set %s", key)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "local.set %s", key)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "local.set %s", key)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), s.path(key)), "local.set %s", key)
}

func (s *Storage) load() (active, deleted []model.Response, err error) {
	active, deleted = []model.Response{}, []model.Response{}
	if err = s.get(ActiveKey, &active); err != nil {
		return
	}
	err = s.get(DeletedKey, &deleted)
	return
}

func (s *Storage) save(active, deleted []model.Response) error {
	if err := s.set(ActiveKey, active); err != nil {
		return err
	}
	return s.set(DeletedKey, deleted)
}

func (s *Storage) ListActive(ctx context.Context) ([]model.Response, error) {
	active := []model.Response{}
	return active, s.Get(ActiveKey, &active)
}

func (s *Storage) ListDeleted(ctx context.Context) ([]model.Response, error) {
	deleted := []model.Response{}
	return deleted, s.Get(DeletedKey, &deleted)
}

// Snapshot overwrites both entries.
func (s *Storage) Snapshot(ctx context.Context, active, deleted []model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(active, deleted)
}

func (s *Storage) Insert(ctx context.Context, r model.Response) (model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, deleted, err := s.load()
	if err != nil {
		return model.Response{}, err
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now()
	}
	if r.ID == "" {
		r.ID = strconv.FormatInt(r.SubmittedAt.UnixMilli(), 10)
	}
	r.DeletedAt = nil

	if err = s.save(append(active, r), deleted); err != nil {
		return model.Response{}, err
	}
	return r, nil
}

func (s *Storage) SoftDelete(ctx context.Context, id string, at time.Time) (model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, deleted, err := s.load()
	if err != nil {
		return model.Response{}, err
	}
	i := find(active, id)
	if i < 0 {
		return model.Response{}, store.ErrNotFound
	}

	moved := active[i].WithDeletedAt(at)
	active = append(active[:i], active[i+1:]...)
	if err = s.save(active, append(deleted, moved)); err != nil {
		return model.Response{}, err
	}
	return moved, nil
}

func (s *Storage) Restore(ctx context.Context, id string) (model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, deleted, err := s.load()
	if err != nil {
		return model.Response{}, err
	}
	i := find(deleted, id)
	if i < 0 {
		return model.Response{}, store.ErrNotFound
	}

	moved := deleted[i].Restored()
	deleted = append(deleted[:i], deleted[i+1:]...)
	if err = s.save(append(active, moved), deleted); err != nil {
		return model.Response{}, err
	}
	return moved, nil
}

func (s *Storage) Stats(ctx context.Context) (model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, deleted, err := s.load()
	if err != nil {
		return model.Stats{}, err
	}
	return model.CountStats(active, len(deleted)), nil
}

func find(list []model.Response, id string) int {
	for i, r := range list {
		if r.ID == id {
			return i
		}
	}
	return -1
}
