package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"notejournal/models"
)

const noteSelect = `SELECT n.id, n.user_id, n.title, n.content, n.created_at, c.id, c.name
	FROM notes n LEFT JOIN categories c ON c.id = n.category_id`

// Notes stores notes. Every method takes the caller's user id and folds it
// into the statement itself, so other users' notes look absent.
type Notes struct {
	db  *sql.DB
	now func() time.Time
}

// NewNotes uses now to stamp created_at; nil means time.Now.
func NewNotes(conn *sql.DB, now func() time.Time) *Notes {
	if now == nil {
		now = time.Now
	}
	return &Notes{db: conn, now: now}
}

// ValidateNote checks title and content and returns the trimmed title.
func ValidateNote(title, content string) (string, error) {
	var v models.ValidationError
	title = strings.TrimSpace(title)
	if title == "" {
		v.Add("title", "title is required")
	} else if utf8.RuneCountInString(title) > models.MaxTitleLength {
		v.Add("title", fmt.Sprintf("title must be at most %d characters", models.MaxTitleLength))
	}
	if strings.TrimSpace(content) == "" {
		v.Add("content", "content is required")
	}
	return title, v.Err()
}

func (n *Notes) Create(ctx context.Context, ownerID int64, title, content string, categoryID *int64) (models.Note, error) {
	title, err := ValidateNote(title, content)
	if err != nil {
		return models.Note{}, err
	}
	createdAt := n.now().UTC().Truncate(time.Second)

	res, err := n.db.ExecContext(ctx,
		"INSERT INTO notes (user_id, title, content, created_at, category_id) VALUES (?, ?, ?, ?, ?)",
		ownerID, title, content, createdAt, categoryID)
	if err != nil {
		return models.Note{}, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n.Get(ctx, ownerID, id)
}

func (n *Notes) Get(ctx context.Context, ownerID, id int64) (models.Note, error) {
	row := n.db.QueryRowContext(ctx, noteSelect+" WHERE n.id = ? AND n.user_id = ?", id, ownerID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, fmt.Errorf("note %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("get note %d: %w", id, err)
	}
	return note, nil
}

// Update replaces title and content. created_at and category are untouched.
func (n *Notes) Update(ctx context.Context, ownerID, id int64, title, content string) (models.Note, error) {
	title, err := ValidateNote(title, content)
	if err != nil {
		return models.Note{}, err
	}
	res, err := n.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ? WHERE id = ? AND user_id = ?",
		title, content, id, ownerID)
	if err != nil {
		return models.Note{}, fmt.Errorf("update note %d: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return models.Note{}, err
	}
	return n.Get(ctx, ownerID, id)
}

func (n *Notes) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := n.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// ListRange returns the owner's notes created in [from, to), oldest first.
func (n *Notes) ListRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Note, error) {
	rows, err := n.db.QueryContext(ctx,
		noteSelect+" WHERE n.user_id = ? AND n.created_at >= ? AND n.created_at < ? ORDER BY n.created_at ASC, n.id ASC",
		ownerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (models.Note, error) {
	var (
		note    models.Note
		catID   sql.NullInt64
		catName sql.NullString
	)
	if err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Content, &note.CreatedAt, &catID, &catName); err != nil {
		return models.Note{}, err
	}
	note.CreatedAt = note.CreatedAt.UTC()
	if catID.Valid {
		note.Category = &models.Category{ID: catID.Int64, Name: catName.String}
	}
	return note, nil
}

func requireAffected(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("note %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("note %d: %w", id, models.ErrNotFound)
	}
	return nil
}
