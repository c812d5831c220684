package authorloader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Author is the related record resolved for story rows.
type Author struct {
	ID   uuid.UUID
	Name string
}

// AuthorLoader batches author lookups across one request, so rendering a page
// of stories issues a single query instead of one per row.
type AuthorLoader struct {
	Loader *dataloader.Loader
}

func NewAuthorLoader(pool *pgxpool.Pool) *AuthorLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Convert keys to []uuid.UUID
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid UUID: %w", err)}}
			}
			ids[i] = id
		}

		// Fetch authors in batch
		rows, err := pool.Query(ctx, "SELECT id, name FROM authors WHERE id = ANY($1)", ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}
		defer rows.Close()

		// Map UUID -> author for ordering
		authorMap := make(map[uuid.UUID]Author)
		for rows.Next() {
			var a Author
			if err := rows.Scan(&a.ID, &a.Name); err != nil {
				results := make([]*dataloader.Result, len(keys))
				for i := range results {
					results[i] = &dataloader.Result{Error: err}
				}
				return results
			}
			authorMap[a.ID] = a
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if a, ok := authorMap[id]; ok {
				results[i] = &dataloader.Result{Data: a}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &AuthorLoader{Loader: loader}
}

// Load resolves one author by id.
func (l *AuthorLoader) Load(ctx context.Context, id string) (Author, bool, error) {
	thunk := l.Loader.Load(ctx, dataloader.StringKey(id))
	data, err := thunk()
	if err != nil {
		return Author{}, false, err
	}
	author, ok := data.(Author)
	return author, ok, nil
}
