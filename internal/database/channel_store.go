package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

var channelFields = []string{
	"id", "uid", "label", "description", "access_key", "circle", "include_tags", "exclude_tags",
	"full_text_search", "media_type", "min_size", "max_size", "languages",
}

// ChannelStore reads user-defined channels
type ChannelStore struct {
	src query.DataSource
}

// NewChannelStore creates a channel repository over a data source
func NewChannelStore(src query.DataSource) *ChannelStore {
	return &ChannelStore{src: src}
}

// SelectByID returns the channel with the given id owned by uid, or nil
// when there is none.
func (s *ChannelStore) SelectByID(ctx context.Context, id, uid int64) (*models.UserDefinedChannel, error) {
	rows, err := s.src.Select(ctx, models.TableChannel, channelFields, query.And{
		query.Cmp{Field: "id", Op: query.Eq, Value: id},
		query.Cmp{Field: "uid", Op: query.Eq, Value: uid},
	}, nil, query.Limit{Count: 1})
	if err != nil {
		return nil, fmt.Errorf("select channel %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return channelFromRow(rows[0]), nil
}

// ListByUser returns every channel owned by uid ordered by label
func (s *ChannelStore) ListByUser(ctx context.Context, uid int64) ([]models.UserDefinedChannel, error) {
	rows, err := s.src.Select(ctx, models.TableChannel, channelFields,
		query.Cmp{Field: "uid", Op: query.Eq, Value: uid},
		[]query.Order{{Field: "label"}}, query.Limit{})
	if err != nil {
		return nil, fmt.Errorf("list channels for %d: %w", uid, err)
	}
	out := make([]models.UserDefinedChannel, 0, len(rows))
	for _, r := range rows {
		out = append(out, *channelFromRow(r))
	}
	return out, nil
}

func channelFromRow(r query.Row) *models.UserDefinedChannel {
	return &models.UserDefinedChannel{
		ID:             r.Int64("id"),
		UID:            r.Int64("uid"),
		Label:          r.String("label"),
		Description:    r.String("description"),
		AccessKey:      r.String("access_key"),
		Circle:         r.Int64("circle"),
		IncludeTags:    models.NormalizeTags(splitList(r.String("include_tags"))),
		ExcludeTags:    models.NormalizeTags(splitList(r.String("exclude_tags"))),
		FullTextSearch: r.String("full_text_search"),
		MediaType:      r.Int64("media_type"),
		MinSize:        r.Int64("min_size"),
		MaxSize:        r.Int64("max_size"),
		Languages:      models.NormalizeLanguages(splitList(r.String("languages"))),
	}
}

// splitList reads a comma separated column
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
