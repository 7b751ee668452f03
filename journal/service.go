package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"notejournal/models"
	"notejournal/repository"
)

type Policy string

const (
	// PolicyDynamic buckets notes under every category in the registry.
	PolicyDynamic Policy = "dynamic"
	// PolicyFixed buckets notes under FixedCategories only and omits the rest.
	PolicyFixed Policy = "fixed"
)

var FixedCategories = []string{"good-things", "bad-things", "interest", "to-do"}

type NoteStore interface {
	Create(ctx context.Context, ownerID int64, title, content string, categoryID *int64) (models.Note, error)
	Get(ctx context.Context, ownerID, id int64) (models.Note, error)
	Update(ctx context.Context, ownerID, id int64, title, content string) (models.Note, error)
	Delete(ctx context.Context, ownerID, id int64) error
	ListRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Note, error)
}

type CategoryStore interface {
	Get(ctx context.Context, name string) (models.Category, error)
	GetOrCreate(ctx context.Context, name string) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

type Options struct {
	Policy Policy
	// AutoCreateCategories makes AddNote create unknown categories instead of
	// rejecting them.
	AutoCreateCategories bool
	Location             *time.Location
	Now                  func() time.Time
}

type Service struct {
	notes      NoteStore
	categories CategoryStore
	opts       Options
}

func NewService(notes NoteStore, categories CategoryStore, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = PolicyDynamic
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{notes: notes, categories: categories, opts: opts}
}

// WeekView is a user's notes for one week grouped by category name.
type WeekView struct {
	Window  Window
	Buckets map[string][]models.Note
	// Uncategorized holds notes without a category (dynamic policy only).
	Uncategorized []models.Note
}

func (v WeekView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartOfWeek     string                   `json:"start_of_week"`
		EndOfWeek       string                   `json:"end_of_week"`
		WeekOffset      int                      `json:"week_offset"`
		NotesByCategory map[string][]models.Note `json:"notes_by_category"`
		Uncategorized   []models.Note            `json:"uncategorized"`
	}{
		StartOfWeek:     v.Window.Start.Format(dateLayout),
		EndOfWeek:       v.Window.End.Format(dateLayout),
		WeekOffset:      v.Window.Offset,
		NotesByCategory: v.Buckets,
		Uncategorized:   v.Uncategorized,
	})
}

// Week aggregates userID's notes for the week at offset from today.
func (s *Service) Week(ctx context.Context, userID int64, offset int) (WeekView, error) {
	if !ValidOffset(offset) {
		return WeekView{}, models.NewValidationError("week", "week offset out of range")
	}
	window := WeekWindow(s.opts.Now().In(s.opts.Location), offset)
	from, to := window.Bounds()

	notes, err := s.notes.ListRange(ctx, userID, from, to)
	if err != nil {
		return WeekView{}, fmt.Errorf("week %d: %w", offset, err)
	}

	names, err := s.bucketNames(ctx)
	if err != nil {
		return WeekView{}, fmt.Errorf("week %d: %w", offset, err)
	}

	view := WeekView{
		Window:        window,
		Buckets:       make(map[string][]models.Note, len(names)),
		Uncategorized: []models.Note{},
	}
	for _, name := range names {
		view.Buckets[name] = []models.Note{}
	}
	for _, note := range notes {
		if !window.Contains(note.CreatedAt) {
			continue
		}
		if note.Category == nil {
			if s.opts.Policy == PolicyDynamic {
				view.Uncategorized = append(view.Uncategorized, note)
			}
			continue
		}
		name := note.Category.Name
		if _, ok := view.Buckets[name]; !ok && s.opts.Policy == PolicyFixed {
			continue
		}
		// under the dynamic policy a category created after the listing
		// still gets its bucket
		view.Buckets[name] = append(view.Buckets[name], note)
	}
	return view, nil
}

func (s *Service) bucketNames(ctx context.Context) ([]string, error) {
	if s.opts.Policy == PolicyFixed {
		return FixedCategories, nil
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names, nil
}

// AddNote creates a note for userID. An empty categoryName leaves the note
// uncategorized.
func (s *Service) AddNote(ctx context.Context, userID int64, title, content, categoryName string) (models.Note, error) {
	if _, err := repository.ValidateNote(title, content); err != nil {
		return models.Note{}, err
	}

	var categoryID *int64
	if name := strings.TrimSpace(categoryName); name != "" {
		category, err := s.resolveCategory(ctx, name)
		if err != nil {
			return models.Note{}, err
		}
		categoryID = &category.ID
	}
	return s.notes.Create(ctx, userID, title, content, categoryID)
}

func (s *Service) resolveCategory(ctx context.Context, name string) (models.Category, error) {
	if s.opts.AutoCreateCategories {
		return s.categories.GetOrCreate(ctx, name)
	}
	name, err := repository.CleanCategoryName(name)
	if err != nil {
		return models.Category{}, err
	}
	category, err := s.categories.Get(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return models.Category{}, models.NewValidationError("category", fmt.Sprintf("unknown category %q", name))
	}
	return category, err
}

func (s *Service) Note(ctx context.Context, userID, noteID int64) (models.Note, error) {
	return s.notes.Get(ctx, userID, noteID)
}

func (s *Service) EditNote(ctx context.Context, userID, noteID int64, title, content string) (models.Note, error) {
	return s.notes.Update(ctx, userID, noteID, title, content)
}

func (s *Service) DeleteNote(ctx context.Context, userID, noteID int64) error {
	return s.notes.Delete(ctx, userID, noteID)
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}
