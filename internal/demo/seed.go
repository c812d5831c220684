package demo

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/facetview/internal/db"
)

// Seed loads the sample dataset on first run: three stories across two
// categories, two of three authors referenced.
func Seed(ctx context.Context, conn *db.Connection) error {
	var count int64
	if err := conn.Pool.QueryRow(ctx, "SELECT count(*) FROM stories").Scan(&count); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	john, mary, joe := uuid.New(), uuid.New(), uuid.New()
	news, misc := uuid.New(), uuid.New()
	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()

	err := conn.WithTx(ctx, func(tx pgx.Tx) error {
		authors := []struct {
			id   uuid.UUID
			name string
		}{
			{john, "John"},
			{mary, "Mary"},
			{joe, "joe"},
		}
		for _, a := range authors {
			if _, err := tx.Exec(ctx, "INSERT INTO authors (id, name) VALUES ($1, $2)", a.id, a.name); err != nil {
				return fmt.Errorf("failed to seed author %s: %w", a.name, err)
			}
		}

		categories := []struct {
			id    uuid.UUID
			title string
			slug  string
		}{
			{news, "News", "news"},
			{misc, "Misc", "misc"},
		}
		for _, c := range categories {
			if _, err := tx.Exec(ctx, "INSERT INTO categories (id, title, slug) VALUES ($1, $2, $3)", c.id, c.title, c.slug); err != nil {
				return fmt.Errorf("failed to seed category %s: %w", c.slug, err)
			}
		}

		stories := []struct {
			id     uuid.UUID
			title  string
			status string
			paid   bool
			author uuid.UUID
			cats   []uuid.UUID
		}{
			{s1, "s1", "pub", true, john, []uuid.UUID{news, misc}},
			{s2, "s2", "pub", false, mary, []uuid.UUID{news}},
			{s3, "s3", "draft", true, john, []uuid.UUID{misc}},
		}
		for _, s := range stories {
			if _, err := tx.Exec(ctx,
				"INSERT INTO stories (id, title, text, status, paid, author_id) VALUES ($1, $2, 'test', $3, $4, $5)",
				s.id, s.title, s.status, s.paid, s.author,
			); err != nil {
				return fmt.Errorf("failed to seed story %s: %w", s.title, err)
			}
			for _, cat := range s.cats {
				if _, err := tx.Exec(ctx,
					"INSERT INTO story_categories (story_id, category_id) VALUES ($1, $2)", s.id, cat,
				); err != nil {
					return fmt.Errorf("failed to link story %s: %w", s.title, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[DEMO] seeded sample dataset")
	return nil
}
