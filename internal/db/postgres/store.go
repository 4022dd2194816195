package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/api"
	"github.com/soaringjerry/kavili/internal/models"
)

// Store keeps quiz content, entries and admin data in Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ api.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger.With(zap.String("store", "postgres"))}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, question_number, question_text, created_at
        FROM questions
        ORDER BY question_number, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	var out []*models.Question
	byID := map[string]*models.Question{}
	for rows.Next() {
		q := &models.Question{}
		if err := rows.Scan(&q.ID, &q.Number, &q.Text, &q.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
		byID[q.ID] = q
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	opts, err := s.queryOptions(ctx, `
        SELECT id, question_id, option_number, option_text, weights
        FROM options
        ORDER BY question_id, option_number
    `)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		if q, ok := byID[o.QuestionID]; ok {
			q.Options = append(q.Options, o)
		}
	}
	return out, nil
}

func (s *Store) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	q := &models.Question{}
	err := s.pool.QueryRow(ctx, `
        SELECT id, question_number, question_text, created_at
        FROM questions
        WHERE id = $1
    `, id).Scan(&q.ID, &q.Number, &q.Text, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	q.Options, err = s.queryOptions(ctx, `
        SELECT id, question_id, option_number, option_text, weights
        FROM options
        WHERE question_id = $1
        ORDER BY option_number
    `, id)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) queryOptions(ctx context.Context, query string, args ...any) ([]*models.Option, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()
	var out []*models.Option
	for rows.Next() {
		o := &models.Option{}
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Number, &o.Text, &o.Weights); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if o.Weights == nil {
			o.Weights = map[string]int{}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) InsertQuestion(ctx context.Context, q *models.Question) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO questions (id, question_number, question_text, created_at)
        VALUES ($1, $2, $3, $4)
    `, q.ID, q.Number, q.Text, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q *models.Question) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE questions SET question_text = $2 WHERE id = $1`, q.ID, q.Text)
	if err != nil {
		return false, fmt.Errorf("update question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var errMissingQuestion = errors.New("question missing")

func (s *Store) ReorderQuestions(ctx context.Context, order []string) (bool, error) {
	err := WithinTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		for i, id := range order {
			tag, err := tx.Exec(ctx, `UPDATE questions SET question_number = $2 WHERE id = $1`, id, i+1)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return errMissingQuestion
			}
		}
		return nil
	})
	if errors.Is(err, errMissingQuestion) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reorder questions: %w", err)
	}
	return true, nil
}

func (s *Store) GetOption(ctx context.Context, id string) (*models.Option, error) {
	opts, err := s.queryOptions(ctx, `
        SELECT id, question_id, option_number, option_text, weights
        FROM options
        WHERE id = $1
    `, id)
	if err != nil || len(opts) == 0 {
		return nil, err
	}
	return opts[0], nil
}

func (s *Store) InsertOption(ctx context.Context, o *models.Option) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO options (id, question_id, option_number, option_text, weights)
        VALUES ($1, $2, $3, $4, $5)
    `, o.ID, o.QuestionID, o.Number, o.Text, weightsOrEmpty(o.Weights))
	if err != nil {
		return fmt.Errorf("insert option: %w", err)
	}
	return nil
}

func (s *Store) UpdateOption(ctx context.Context, o *models.Option) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE options
        SET option_number = $2, option_text = $3, weights = $4
        WHERE id = $1
    `, o.ID, o.Number, o.Text, weightsOrEmpty(o.Weights))
	if err != nil {
		return false, fmt.Errorf("update option: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteOption(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM options WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete option: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func weightsOrEmpty(w map[string]int) map[string]int {
	if w == nil {
		return map[string]int{}
	}
	return w
}

func (s *Store) ListPersonalities(ctx context.Context) ([]*models.Personality, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT name, title, description, traits, icon, image_path, color, updated_at
        FROM personalities
        ORDER BY name
    `)
	if err != nil {
		return nil, fmt.Errorf("list personalities: %w", err)
	}
	defer rows.Close()
	out := []*models.Personality{}
	for rows.Next() {
		p := &models.Personality{}
		if err := rows.Scan(&p.Name, &p.Title, &p.Description, &p.Traits, &p.Icon, &p.ImagePath, &p.Color, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan personality: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPersonality(ctx context.Context, name string) (*models.Personality, error) {
	p := &models.Personality{}
	err := s.pool.QueryRow(ctx, `
        SELECT name, title, description, traits, icon, image_path, color, updated_at
        FROM personalities
        WHERE name = $1
    `, name).Scan(&p.Name, &p.Title, &p.Description, &p.Traits, &p.Icon, &p.ImagePath, &p.Color, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get personality: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertPersonality(ctx context.Context, p *models.Personality) error {
	traits := p.Traits
	if traits == nil {
		traits = []string{}
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO personalities (name, title, description, traits, icon, image_path, color, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (name) DO UPDATE
        SET title = EXCLUDED.title,
            description = EXCLUDED.description,
            traits = EXCLUDED.traits,
            icon = EXCLUDED.icon,
            image_path = EXCLUDED.image_path,
            color = EXCLUDED.color,
            updated_at = EXCLUDED.updated_at
    `, p.Name, p.Title, p.Description, traits, p.Icon, p.ImagePath, p.Color, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert personality: %w", err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, name string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value::text FROM settings WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func (s *Store) PutSetting(ctx context.Context, name string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO settings (name, value)
        VALUES ($1, $2::jsonb)
        ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
    `, name, string(value))
	if err != nil {
		return fmt.Errorf("put setting: %w", err)
	}
	return nil
}

func (s *Store) InsertEntry(ctx context.Context, e *models.Entry) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO entries (id, name, phone, quiz_type, personality_result, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, e.ID, e.Name, e.Phone, e.QuizType, e.Result, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	e := &models.Entry{}
	err := s.pool.QueryRow(ctx, `
        SELECT id, name, phone, quiz_type, personality_result, created_at
        FROM entries
        WHERE id = $1
    `, id).Scan(&e.ID, &e.Name, &e.Phone, &e.QuizType, &e.Result, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// SetEntryResult only fills an empty result.
func (s *Store) SetEntryResult(ctx context.Context, id, result string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE entries
        SET personality_result = $2
        WHERE id = $1 AND personality_result = ''
    `, id, result)
	if err != nil {
		return false, fmt.Errorf("set entry result: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListEntries(ctx context.Context, since time.Time) ([]*models.Entry, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, name, phone, quiz_type, personality_result, created_at
        FROM entries
        WHERE $1::timestamptz IS NULL OR created_at >= $1
        ORDER BY created_at DESC, id
    `, nullableTime(since))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	var out []*models.Entry
	for rows.Next() {
		e := &models.Entry{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.QuizType, &e.Result, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Store) DeleteEntry(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
        SELECT id, email, pass_hash, created_at
        FROM users
        WHERE email = $1
    `, strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *Store) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO users (id, email, pass_hash, created_at)
        VALUES ($1, $2, $3, $4)
    `, u.ID, strings.ToLower(u.Email), u.PassHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *Store) AddAudit(ctx context.Context, e models.AuditEntry) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO audit_log (ts, actor, action, target, note)
        VALUES ($1, $2, $3, $4, $5)
    `, ts, e.Actor, e.Action, e.Target, e.Note)
	if err != nil {
		s.logger.Error("store operation failed", zap.String("op", "AddAudit"), zap.Error(err))
	}
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
        SELECT ts, actor, action, target, note
        FROM audit_log
        ORDER BY id DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
