package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/mbolis/encuestas-pae/model"
	"github.com/mbolis/encuestas-pae/store"
)

// Repository is the SQL backend for responses. Deletion only stamps
// deleted_at, so every deleted response can be restored.
type Repository struct {
	db  *sql.DB
	now func() time.Time

	mu          sync.Mutex
	subscribers map[chan store.Change]struct{}
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:          db,
		now:         time.Now,
		subscribers: map[chan store.Change]struct{}{},
	}
}

const responseColumns = `id, survey_type, submitted_at, answers, deleted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(row scanner) (r model.Response, err error) {
	var (
		surveyType string
		answers    string
		deletedAt  sql.NullTime
	)
	err = row.Scan(&r.ID, &surveyType, &r.SubmittedAt, &answers, &deletedAt)
	if err != nil {
		return
	}

	r.SurveyType = model.SurveyType(surveyType)
	r.Answers = model.Answers{}
	if answers != "" {
		err = json.Unmarshal([]byte(answers), &r.Answers)
		if err != nil {
			return
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		r.DeletedAt = &t
	}
	return
}

func (repo *Repository) Insert(ctx context.Context, r model.Response) (model.Response, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Response{}, errors.Wrap(err, "db.insert_response.id")
	}
	r.ID = id.String()
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = repo.now()
	}
	r.SubmittedAt = r.SubmittedAt.UTC()
	r.DeletedAt = nil

	answersJson, err := json.Marshal(r.Answers)
	if err != nil {
		return model.Response{}, errors.Wrap(err, "db.insert_response.answers")
	}

	_, err = repo.db.ExecContext(ctx, `
		INSERT INTO response (id, survey_type, submitted_at, answers, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID,
		string(r.SurveyType),
		r.SubmittedAt,
		string(answersJson),
		repo.now().UTC(),
	)
	if err != nil {
		return model.Response{}, errors.Wrap(err, "db.insert_response")
	}

	repo.publish(store.Change{Op: store.OpInsert, ID: r.ID})
	return r, nil
}

func (repo *Repository) list(ctx context.Context, code, query string) ([]model.Response, error) {
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, code)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, errors.Wrap(err, code+".scan")
		}
		responses = append(responses, r)
	}
	return responses, errors.Wrap(rows.Err(), code)
}

// ListActive returns the active responses in insertion order.
func (repo *Repository) ListActive(ctx context.Context) ([]model.Response, error) {
	return repo.list(ctx, "db.list_active", `
		SELECT `+responseColumns+`
		FROM response
		WHERE deleted_at IS NULL
		ORDER BY rowid`)
}

// ListDeleted returns the deleted responses, oldest deletion first.
func (repo *Repository) ListDeleted(ctx context.Context) ([]model.Response, error) {
	return repo.list(ctx, "db.list_deleted", `
		SELECT `+responseColumns+`
		FROM response
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at, rowid`)
}

func (repo *Repository) get(ctx context.Context, id string) (model.Response, error) {
	return scanResponse(repo.db.QueryRowContext(ctx, `
		SELECT `+responseColumns+`
		FROM response
		WHERE id = ?`,
		id,
	))
}

// update runs an UPDATE touching at most the row id, and returns that row.
func (repo *Repository) update(ctx context.Context, code, id, query string, args ...any) (model.Response, error) {
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Response{}, errors.Wrap(err, code)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Response{}, errors.Wrap(err, code+".verify")
	}
	if n < 1 {
		return model.Response{}, store.ErrNotFound
	}

	r, err := repo.get(ctx, id)
	return r, errors.Wrap(err, code+".get")
}

func (repo *Repository) SoftDelete(ctx context.Context, id string, at time.Time) (model.Response, error) {
	r, err := repo.update(ctx, "db.soft_delete_response", id, `
		UPDATE response
		SET
			deleted_at = ?,
			updated_at = ?
		WHERE id = ?
			AND deleted_at IS NULL`,
		at.UTC(),
		repo.now().UTC(),
		id,
	)
	if err != nil {
		return model.Response{}, err
	}

	repo.publish(store.Change{Op: store.OpDelete, ID: id})
	return r, nil
}

func (repo *Repository) Restore(ctx context.Context, id string) (model.Response, error) {
	r, err := repo.update(ctx, "db.restore_response", id, `
		UPDATE response
		SET
			deleted_at = NULL,
			updated_at = ?
		WHERE id = ?
			AND deleted_at IS NOT NULL`,
		repo.now().UTC(),
		id,
	)
	if err != nil {
		return model.Response{}, err
	}

	repo.publish(store.Change{Op: store.OpUpdate, ID: id})
	return r, nil
}

func (repo *Repository) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT survey_type, COUNT(*)
		FROM response
		WHERE deleted_at IS NULL
		GROUP BY survey_type`)
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "db.stats")
	}
	defer rows.Close()

	stats := model.CountStats(nil, 0)
	for rows.Next() {
		var (
			surveyType string
			n          int
		)
		err = rows.Scan(&surveyType, &n)
		if err != nil {
			return model.Stats{}, errors.Wrap(err, "db.stats.scan")
		}
		stats.CountsByType[model.SurveyType(surveyType)] = n
		stats.Total += n
	}
	if err = rows.Err(); err != nil {
		return model.Stats{}, errors.Wrap(err, "db.stats")
	}
	rows.Close()

	err = repo.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM response
		WHERE deleted_at IS NOT NULL`,
	).Scan(&stats.Deleted)
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "db.stats.deleted")
	}
	return stats, nil
}

// Subscribe delivers every change made through repo until ctx is done.
// Slow subscribers miss changes rather than block writers.
func (repo *Repository) Subscribe(ctx context.Context) <-chan store.Change {
	ch := make(chan store.Change, 16)

	repo.mu.Lock()
	repo.subscribers[ch] = struct{}{}
	repo.mu.Unlock()

	go func() {
		<-ctx.Done()
		repo.mu.Lock()
		delete(repo.subscribers, ch)
		close(ch)
		repo.mu.Unlock()
	}()
	return ch
}

func (repo *Repository) publish(c store.Change) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for ch := range repo.subscribers {
		select {
		case ch <- c:
		default:
		}
	}
}
