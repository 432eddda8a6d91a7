package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mbolis/encuestas-pae/log"
	"github.com/mbolis/encuestas-pae/model"
)

// Store keeps the active and deleted responses in memory, mirrored to the
// primary backend or, when that fails, to the fallback storage.
type Store struct {
	primary  Backend
	fallback Snapshotter
	now      func() time.Time

	mu      sync.RWMutex
	active  []model.Response
	deleted []model.Response
}

// Option configures a Store built by New.
type Option func(*Store)

// WithClock replaces time.Now as the source of submission and deletion times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty Store. Call Load to fill it.
func New(primary Backend, fallback Snapshotter, opts ...Option) *Store {
	s := &Store{
		primary:  primary,
		fallback: fallback,
		now:      time.Now,
		active:   []model.Response{},
		deleted:  []model.Response{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces both collections with the primary backend contents, plus the
// responses only the fallback holds, or with the fallback contents alone if
// the backend fails. It never fails: on a double failure both collections are
// left empty.
func (s *Store) Load(ctx context.Context) {
	source := "backend"
	active, deleted, err := fetch(ctx, s.primary)
	if err == nil {
		localActive, localDeleted, lerr := fetch(ctx, s.fallback)
		if lerr != nil {
			log.Warnf("store.load.fallback: %s", lerr)
		} else {
			active, deleted = mergeLocal(active, deleted, localActive, localDeleted)
		}
	} else {
		log.Warnf("store.load.primary: %s", err)

		source = "local storage"
		active, deleted, err = fetch(ctx, s.fallback)
		if err != nil {
			log.Errorf("store.load.fallback: %s", err)
			source = "nowhere"
			active, deleted = nil, nil
		}
	}

	s.mu.Lock()
	s.active = normalize(active, false)
	s.deleted = normalize(deleted, true)
	s.mu.Unlock()

	log.Infof("store.load: %d active, %d deleted responses from %s", len(active), len(deleted), source)
}

// mergeLocal appends to the backend collections the local responses whose ids
// the backend does not know: those saved while it was unreachable.
func mergeLocal(active, deleted, localActive, localDeleted []model.Response) ([]model.Response, []model.Response) {
	known := make(map[string]bool, len(active)+len(deleted))
	for _, r := range active {
		known[r.ID] = true
	}
	for _, r := range deleted {
		known[r.ID] = true
	}

	n := 0
	for _, r := range localActive {
		if !known[r.ID] {
			active = append(active, r)
			n++
		}
	}
	for _, r := range localDeleted {
		if !known[r.ID] {
			deleted = append(deleted, r)
			n++
		}
	}
	if n > 0 {
		log.Infof("store.load: %d responses found only in local storage", n)
	}
	return active, deleted
}

type lister interface {
	ListActive(ctx context.Context) ([]model.Response, error)
	ListDeleted(ctx context.Context) ([]model.Response, error)
}

func fetch(ctx context.Context, src lister) (active, deleted []model.Response, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		active, err = src.ListActive(gctx)
		return errors.Wrap(err, "list active")
	})
	g.Go(func() (err error) {
		deleted, err = src.ListDeleted(gctx)
		return errors.Wrap(err, "list deleted")
	})
	err = g.Wait()
	return
}

func normalize(list []model.Response, deleted bool) []model.Response {
	out := make([]model.Response, 0, len(list))
	for _, r := range list {
		switch {
		case deleted && r.DeletedAt == nil:
			at := r.SubmittedAt
			r = r.WithDeletedAt(at)
		case !deleted && r.DeletedAt != nil:
			r = r.Restored()
		}
		out = append(out, r)
	}
	return out
}

// Submit records a new response. The error is non-nil only when neither the
// backend nor the fallback could store it.
func (s *Store) Submit(ctx context.Context, surveyType model.SurveyType, answers model.Answers) (model.Response, error) {
	if !surveyType.Valid() {
		return model.Response{}, model.ErrUnknownSurveyType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	r := model.Response{
		ID:          s.nextLocalID(now),
		SurveyType:  surveyType,
		SubmittedAt: now,
		Answers:     answers.Clone(),
	}
	if r.Answers == nil {
		r.Answers = model.Answers{}
	}

	stored, err := s.primary.Insert(ctx, r)
	if err == nil {
		if stored.ID == "" {
			stored.ID = r.ID
		}
		if stored.SubmittedAt.IsZero() {
			stored.SubmittedAt = r.SubmittedAt
		}
		stored.DeletedAt = nil
		s.active = append(s.active, stored)
		log.Debugf("store.submit: %s saved to backend as %s", surveyType, stored.ID)
		return stored.Clone(), nil
	}
	log.Warnf("store.submit.primary: %s", err)

	active := append(cloneList(s.active), r)
	if ferr := s.fallback.Snapshot(ctx, active, s.deleted); ferr != nil {
		var merr *multierror.Error
		merr = multierror.Append(merr, errors.Wrap(err, "backend"), errors.Wrap(ferr, "local storage"))
		log.Errorf("store.submit.fallback: %s", merr)
		return model.Response{}, merr.ErrorOrNil()
	}

	s.active = active
	log.Infof("store.submit: %s saved to local storage as %s", surveyType, r.ID)
	return r.Clone(), nil
}

// nextLocalID derives an id from the submission time, bumped until it is unused.
func (s *Store) nextLocalID(now time.Time) string {
	n := now.UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if indexOf(s.active, id) < 0 && indexOf(s.deleted, id) < 0 {
			return id
		}
		n++
	}
}

// Filter returns the active responses matching c, in collection order unless
// c asks for newest first.
func (s *Store) Filter(c model.Criteria) ([]model.Response, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Response{}
	for _, r := range s.active {
		if c.Match(r, now) {
			out = append(out, r.Clone())
		}
	}
	if c.NewestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		})
	}
	return out, nil
}

// SoftDelete moves the active response id to the deleted collection. It
// reports false, changing nothing, if id is not active.
func (s *Store) SoftDelete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.active, id)
	if i < 0 {
		log.Debugf("store.soft_delete: not found (%s)", id)
		return false
	}

	at := s.now()
	moved := s.active[i].WithDeletedAt(at)
	s.active = removeAt(s.active, i)
	s.deleted = append(cloneList(s.deleted), moved)

	if _, err := s.primary.SoftDelete(ctx, id, at); err != nil {
		log.Warnf("store.soft_delete.primary: %s", err)
		s.snapshot(ctx, "store.soft_delete.fallback")
	}
	return true
}

// Restore moves the deleted response id back to the active collection. It
// reports false, changing nothing, if id is not deleted.
func (s *Store) Restore(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.deleted, id)
	if i < 0 {
		log.Debugf("store.restore: not found (%s)", id)
		return false
	}

	moved := s.deleted[i].Restored()
	s.deleted = removeAt(s.deleted, i)
	s.active = append(cloneList(s.active), moved)

	if _, err := s.primary.Restore(ctx, id); err != nil {
		log.Warnf("store.restore.primary: %s", err)
		s.snapshot(ctx, "store.restore.fallback")
	}
	return true
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot(ctx context.Context, code string) {
	if err := s.fallback.Snapshot(ctx, s.active, s.deleted); err != nil {
		log.Errorf("%s: %s", code, err)
	}
}

// Active returns a copy of the active collection.
func (s *Store) Active() []model.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneList(s.active)
}

// Deleted returns a copy of the deleted collection.
func (s *Store) Deleted() []model.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneList(s.deleted)
}

// Stats asks the backend for the counts, computing them from memory when it
// cannot answer.
func (s *Store) Stats(ctx context.Context) model.Stats {
	stats, err := s.primary.Stats(ctx)
	if err == nil {
		return stats
	}
	log.Warnf("store.stats.primary: %s", err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CountStats(s.active, len(s.deleted))
}

// Institutions lists the distinct institucion answers of the active responses.
func (s *Store) Institutions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	institutions := []string{}
	for _, r := range s.active {
		v, ok := r.Answers[model.FieldInstitution]
		if !ok || v.String() == "" || seen[v.String()] {
			continue
		}
		seen[v.String()] = true
		institutions = append(institutions, v.String())
	}
	sort.Strings(institutions)
	return institutions
}

// Watch reloads both collections on every change published by the backend,
// until ctx is done. It does nothing if the backend publishes no changes.
func (s *Store) Watch(ctx context.Context) {
	n, ok := s.primary.(Notifier)
	if !ok {
		log.Debug("store.watch: backend publishes no changes")
		return
	}

	changes := n.Subscribe(ctx)
	go func() {
		for c := range changes {
			log.Debugf("store.watch: %s %s", c.Op, c.ID)
			s.Load(ctx)
		}
	}()
}

func indexOf(list []model.Response, id string) int {
	for i, r := range list {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(list []model.Response, i int) []model.Response {
	out := make([]model.Response, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func cloneList(list []model.Response) []model.Response {
	out := make([]model.Response, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}
