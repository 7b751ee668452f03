package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"notejournal/db"
	"notejournal/models"
)

const sharedLookupTimeout = 10 * time.Second

// Categories is the registry of category names. Names are unique; the UNIQUE
// index on categories.name is what keeps concurrent creators honest.
type Categories struct {
	db    *sql.DB
	group singleflight.Group
}

func NewCategories(conn *sql.DB) *Categories {
	return &Categories{db: conn}
}

// CleanCategoryName trims name and checks it against the column limits.
func CleanCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", models.NewValidationError("category", "category name is required")
	case utf8.RuneCountInString(name) > models.MaxCategoryNameLength:
		return "", models.NewValidationError("category", fmt.Sprintf("category name must be at most %d characters", models.MaxCategoryNameLength))
	}
	return name, nil
}

// Get looks a category up by exact name.
func (c *Categories) Get(ctx context.Context, name string) (models.Category, error) {
	var cat models.Category
	err := c.db.QueryRowContext(ctx, "SELECT id, name FROM categories WHERE name = ?", name).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, fmt.Errorf("category %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("get category %q: %w", name, err)
	}
	return cat, nil
}

// GetOrCreate returns the category called name, creating it on first use.
func (c *Categories) GetOrCreate(ctx context.Context, name string) (models.Category, error) {
	name, err := CleanCategoryName(name)
	if err != nil {
		return models.Category{}, err
	}
	// the shared lookup must not die with whichever caller started it
	ch := c.group.DoChan(name, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return c.getOrCreate(shared, name)
	})
	select {
	case <-ctx.Done():
		return models.Category{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Category{}, res.Err
		}
		return res.Val.(models.Category), nil
	}
}

func (c *Categories) getOrCreate(ctx context.Context, name string) (models.Category, error) {
	cat, err := c.Get(ctx, name)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		return cat, err
	}

	res, err := c.db.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if db.IsUniqueViolation(err) {
		// another process created it between our lookup and insert
		return c.Get(ctx, name)
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	return models.Category{ID: id, Name: name}, nil
}

// List returns every category ordered by name.
func (c *Categories) List(ctx context.Context) ([]models.Category, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}
