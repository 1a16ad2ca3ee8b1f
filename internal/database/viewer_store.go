package database

import (
	"context"
	"fmt"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// ViewerStore loads viewer profiles
type ViewerStore struct {
	src query.DataSource
}

// NewViewerStore creates a viewer profile reader over a data source
func NewViewerStore(src query.DataSource) *ViewerStore {
	return &ViewerStore{src: src}
}

// Load returns the viewer context for uid. Anonymous visitors and unknown
// users get a bare context carrying only the id.
func (s *ViewerStore) Load(ctx context.Context, uid int64) (models.Viewer, error) {
	viewer := models.Viewer{ID: uid}
	if uid == 0 {
		return viewer, nil
	}

	rows, err := s.src.Select(ctx, models.TableViewerProfile,
		[]string{"public_contact_id", "language", "wanted_languages", "items_per_page", "items_per_page_mobile"},
		query.Cmp{Field: "uid", Op: query.Eq, Value: uid}, nil, query.Limit{Count: 1})
	if err != nil {
		return viewer, fmt.Errorf("load viewer %d: %w", uid, err)
	}
	if len(rows) == 0 {
		return viewer, nil
	}

	r := rows[0]
	viewer.PublicContactID = r.Int64("public_contact_id")
	// The interface language leads the wanted languages
	langs := append([]string{r.String("language")}, splitList(r.String("wanted_languages"))...)
	viewer.Languages = models.NormalizeLanguages(langs)
	viewer.ItemsPerPage = int(r.Int64("items_per_page"))
	viewer.ItemsPerPageMobile = int(r.Int64("items_per_page_mobile"))
	return viewer, nil
}
