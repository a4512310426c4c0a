package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"folio/internal/domain"
)

// PostStore implements domain.PostStore on a SQL database.
type PostStore struct {
	db  *DB
	now func() time.Time
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db, now: time.Now}
}

const postColumns = `id, slug, title, COALESCE(subtitle, ''), description, category, tags, status, content, pin_position, publish_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Document, error) {
	var (
		doc       domain.Document
		tags      string
		status    string
		content   string
		pin       sql.NullInt64
		publishAt sql.NullTime
	)
	if err := row.Scan(
		&doc.ID, &doc.Slug, &doc.Title, &doc.Subtitle, &doc.Description, &doc.Category,
		&tags, &status, &content, &pin, &publishAt, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", doc.ID, err)
		}
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	doc.Status = domain.Status(status)
	if content != "" {
		doc.Content = json.RawMessage(content)
	}
	if pin.Valid {
		p := int(pin.Int64)
		doc.PinPosition = &p
	}
	if publishAt.Valid {
		t := publishAt.Time.UTC()
		doc.PublishAt = &t
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

func (s *PostStore) getOne(ctx context.Context, where string, arg any) (*domain.Document, error) {
	row := s.db.conn.QueryRowContext(ctx, s.db.rebind(`SELECT `+postColumns+` FROM posts WHERE `+where+` = ?`), arg)
	doc, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return doc, nil
}

func (s *PostStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.getOne(ctx, "id", id)
}

func (s *PostStore) GetBySlug(ctx context.Context, slug string) (*domain.Document, error) {
	return s.getOne(ctx, "slug", slug)
}

func (s *PostStore) list(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (s *PostStore) ListPublished(ctx context.Context, limit int) ([]domain.Document, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE status = ? ORDER BY created_at DESC`
	args := []any{string(domain.StatusPublished)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.list(ctx, q, args...)
}

func (s *PostStore) ListAll(ctx context.Context) ([]domain.Document, error) {
	return s.list(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
}

func (s *PostStore) slugTaken(ctx context.Context, q querier, slug, exceptID string) (bool, error) {
	var id string
	err := q.QueryRowContext(ctx, s.db.rebind(`SELECT id FROM posts WHERE slug = ?`), slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return id != exceptID, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostStore) Insert(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	out := *doc
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	now := s.now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.CreatedAt
	}
	if out.Status == "" {
		out.Status = domain.StatusDraft
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	taken, err := s.slugTaken(ctx, s.db.conn, out.Slug, "")
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("insert post: %w: %q", domain.ErrSlugTaken, out.Slug)
	}

	tags, _ := json.Marshal(out.Tags)
	_, err = s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO posts (id, slug, title, subtitle, description, category, tags, status, content, pin_position, publish_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		out.ID, out.Slug, out.Title, out.Subtitle, out.Description, out.Category,
		string(tags), string(out.Status), contentText(out.Content),
		nullInt(out.PinPosition), nullTime(out.PublishAt), out.CreatedAt.UTC(), out.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &out, nil
}

func (s *PostStore) Update(ctx context.Context, id string, patch domain.PostPatch) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	defer tx.Rollback()

	var exists string
	err = tx.QueryRowContext(ctx, s.db.rebind(`SELECT id FROM posts WHERE id = ?`), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Slug != nil {
		taken, err := s.slugTaken(ctx, tx, *patch.Slug, id)
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		if taken {
			return fmt.Errorf("update post: %w: %q", domain.ErrSlugTaken, *patch.Slug)
		}
		set("slug", *patch.Slug)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Subtitle != nil {
		set("subtitle", *patch.Subtitle)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		data, _ := json.Marshal(tags)
		set("tags", string(data))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Content != nil {
		set("content", contentText(*patch.Content))
	}
	if patch.PinPosition != nil {
		set("pin_position", nullInt(*patch.PinPosition))
	}
	if patch.PublishAt != nil {
		set("publish_at", nullTime(*patch.PublishAt))
	}
	updated := s.now().UTC()
	if patch.UpdatedAt != nil && !patch.UpdatedAt.IsZero() {
		updated = patch.UpdatedAt.UTC()
	}
	set("updated_at", updated)
	args = append(args, id)

	q := `UPDATE posts SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := tx.ExecContext(ctx, s.db.rebind(q), args...); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return tx.Commit()
}

func (s *PostStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

var _ domain.PostStore = (*PostStore)(nil)
