package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/soaringjerry/kavili/internal/api"
	"github.com/soaringjerry/kavili/internal/models"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ api.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB, logger *zap.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, logger: logger.With(zap.String("store", "sqlite"))}, nil
}

// OpenSQLite opens (creating when needed) the database at path and migrates
// it. ":memory:" keeps everything on a single connection.
func OpenSQLite(ctx context.Context, path, migrationsDir string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}
	store, err := NewSQLiteStore(sqlDB, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, sqlDB, migrationsDir, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) logErr(op string, err error) {
	if err != nil {
		s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	}
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeWeights(w map[string]int) (string, error) {
	if w == nil {
		w = map[string]int{}
	}
	b, err := json.Marshal(w)
	return string(b), err
}

func (s *SQLiteStore) decodeWeights(raw string) map[string]int {
	out := map[string]int{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logErr("decode weights", err)
	}
	return out
}

// --- Questions and options ---

func (s *SQLiteStore) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, question_number, question_text, created_at FROM questions ORDER BY question_number, id`)
	if err != nil {
		return nil, err
	}
	var out []*models.Question
	byID := map[string]*models.Question{}
	for rows.Next() {
		q := &models.Question{}
		if err := rows.Scan(&q.ID, &q.Number, &q.Text, &q.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, q)
		byID[q.ID] = q
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	opts, err := s.queryOptions(ctx, `SELECT id, question_id, option_number, option_text, weights FROM options ORDER BY question_id, option_number`)
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

func (s *SQLiteStore) CountQuestions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM questions`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	q := &models.Question{}
	err := s.db.QueryRowContext(ctx, `SELECT id, question_number, question_text, created_at FROM questions WHERE id = ?`, id).
		Scan(&q.ID, &q.Number, &q.Text, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.Options, err = s.queryOptions(ctx, `SELECT id, question_id, option_number, option_text, weights FROM options WHERE question_id = ? ORDER BY option_number`, id)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *SQLiteStore) queryOptions(ctx context.Context, query string, args ...any) ([]*models.Option, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Option
	for rows.Next() {
		o := &models.Option{}
		var weights string
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Number, &o.Text, &weights); err != nil {
			return nil, err
		}
		o.Weights = s.decodeWeights(weights)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertQuestion(ctx context.Context, q *models.Question) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO questions(id, question_number, question_text, created_at) VALUES (?, ?, ?, ?)`,
		q.ID, q.Number, q.Text, q.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) UpdateQuestion(ctx context.Context, q *models.Question) (bool, error) {
	return affected(s.db.ExecContext(ctx, `UPDATE questions SET question_text = ? WHERE id = ?`, q.Text, q.ID))
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	return affected(s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id))
}

// ReorderQuestions renumbers questions 1..n in the given order, all or nothing.
func (s *SQLiteStore) ReorderQuestions(ctx context.Context, order []string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()
	for i, id := range order {
		ok, err := affected(tx.ExecContext(ctx, `UPDATE questions SET question_number = ? WHERE id = ?`, i+1, id))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, tx.Commit()
}

func (s *SQLiteStore) GetOption(ctx context.Context, id string) (*models.Option, error) {
	opts, err := s.queryOptions(ctx, `SELECT id, question_id, option_number, option_text, weights FROM options WHERE id = ?`, id)
	if err != nil || len(opts) == 0 {
		return nil, err
	}
	return opts[0], nil
}

func (s *SQLiteStore) InsertOption(ctx context.Context, o *models.Option) error {
	weights, err := encodeWeights(o.Weights)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO options(id, question_id, option_number, option_text, weights) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.QuestionID, o.Number, o.Text, weights)
	return err
}

func (s *SQLiteStore) UpdateOption(ctx context.Context, o *models.Option) (bool, error) {
	weights, err := encodeWeights(o.Weights)
	if err != nil {
		return false, err
	}
	return affected(s.db.ExecContext(ctx, `UPDATE options SET option_number = ?, option_text = ?, weights = ? WHERE id = ?`,
		o.Number, o.Text, weights, o.ID))
}

func (s *SQLiteStore) DeleteOption(ctx context.Context, id string) (bool, error) {
	return affected(s.db.ExecContext(ctx, `DELETE FROM options WHERE id = ?`, id))
}

// --- Personalities ---

const personalityColumns = `name, title, description, traits, icon, image_path, color, updated_at`

func (s *SQLiteStore) scanPersonality(scan func(...any) error) (*models.Personality, error) {
	p := &models.Personality{}
	var traits string
	if err := scan(&p.Name, &p.Title, &p.Description, &traits, &p.Icon, &p.ImagePath, &p.Color, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Traits = []string{}
	if traits != "" {
		if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
			s.logErr("decode traits", err)
		}
	}
	return p, nil
}

func (s *SQLiteStore) ListPersonalities(ctx context.Context) ([]*models.Personality, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personalityColumns+` FROM personalities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Personality{}
	for rows.Next() {
		p, err := s.scanPersonality(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetPersonality(ctx context.Context, name string) (*models.Personality, error) {
	p, err := s.scanPersonality(s.db.QueryRowContext(ctx, `SELECT `+personalityColumns+` FROM personalities WHERE name = ?`, name).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) UpsertPersonality(ctx context.Context, p *models.Personality) error {
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO personalities(`+personalityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET title = excluded.title, description = excluded.description, traits = excluded.traits,
			icon = excluded.icon, image_path = excluded.image_path, color = excluded.color, updated_at = excluded.updated_at`,
		p.Name, p.Title, p.Description, string(traits), p.Icon, p.ImagePath, p.Color, p.UpdatedAt.UTC())
	return err
}

// --- Settings ---

func (s *SQLiteStore) GetSetting(ctx context.Context, name string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLiteStore) PutSetting(ctx context.Context, name string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings(name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, string(value))
	return err
}

// --- Entries ---

func (s *SQLiteStore) InsertEntry(ctx context.Context, e *models.Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO entries(id, name, phone, quiz_type, personality_result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Phone, e.QuizType, e.Result, e.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	e := &models.Entry{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name, phone, quiz_type, personality_result, created_at FROM entries WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Phone, &e.QuizType, &e.Result, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SetEntryResult only fills an empty result.
func (s *SQLiteStore) SetEntryResult(ctx context.Context, id, result string) (bool, error) {
	return affected(s.db.ExecContext(ctx, `UPDATE entries SET personality_result = ? WHERE id = ? AND personality_result = ''`, result, id))
}

// ListEntries returns entries created at or after since, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, since time.Time) ([]*models.Entry, error) {
	query := `SELECT id, name, phone, quiz_type, personality_result, created_at FROM entries`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Entry
	for rows.Next() {
		e := &models.Entry{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &e.QuizType, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, id string) (bool, error) {
	return affected(s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id))
}

// --- Users ---

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `SELECT id, email, pass_hash, created_at FROM users WHERE email = ?`, strings.ToLower(email)).
		Scan(&u.ID, &u.Email, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLiteStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.PassHash, u.CreatedAt.UTC())
	return err
}

// ListUsers is used when copying a SQLite file into another store.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, pass_hash, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.PassHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- Audit ---

func (s *SQLiteStore) AddAudit(ctx context.Context, e models.AuditEntry) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_log(ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		ts.UTC(), e.Actor, e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("AddAudit", err)
}

// ListAudit returns the newest entries first.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ts, actor, action, target, note FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var target, note sql.NullString
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &target, &note); err != nil {
			return nil, err
		}
		e.Target, e.Note = target.String, note.String
		out = append(out, e)
	}
	return out, rows.Err()
}
