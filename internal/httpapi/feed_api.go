package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/johnrirwin/channelfeed/internal/auth"
	"github.com/johnrirwin/channelfeed/internal/logging"
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/timeline"
)

// ViewerLoader resolves the viewer context of a local user id
type ViewerLoader interface {
	Load(ctx context.Context, uid int64) (models.Viewer, error)
}

// ChannelLister lists the user-defined channels of a viewer
type ChannelLister interface {
	ListByUser(ctx context.Context, uid int64) ([]models.UserDefinedChannel, error)
}

// FeedAPI serves the timeline pages
type FeedAPI struct {
	composer       *timeline.Composer
	viewers        ViewerLoader
	channels       ChannelLister
	authMiddleware *auth.Middleware
	logger         *logging.Logger
	// communityNoSharer is the no_sharer default of community pages
	communityNoSharer bool
}

// NewFeedAPI creates the feed handlers. authMiddleware may be nil, in which
// case every request is anonymous.
func NewFeedAPI(composer *timeline.Composer, viewers ViewerLoader, channels ChannelLister, authMiddleware *auth.Middleware, communityNoSharer bool, logger *logging.Logger) *FeedAPI {
	return &FeedAPI{
		composer:          composer,
		viewers:           viewers,
		channels:          channels,
		authMiddleware:    authMiddleware,
		logger:            logger,
		communityNoSharer: communityNoSharer,
	}
}

// RegisterRoutes registers the feed routes on the given mux
func (api *FeedAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/channel/", corsMiddleware(api.withViewer(api.handleChannel)))
	mux.HandleFunc("/api/community", corsMiddleware(api.withViewer(api.handleCommunity)))
	mux.HandleFunc("/api/community/", corsMiddleware(api.withViewer(api.handleCommunity)))
	mux.HandleFunc("/api/network", corsMiddleware(api.withViewer(api.handleNetwork)))
	mux.HandleFunc("/api/channels", corsMiddleware(api.withViewer(api.handleListChannels)))
}

func (api *FeedAPI) withViewer(next http.HandlerFunc) http.HandlerFunc {
	if api.authMiddleware == nil {
		return next
	}
	return api.authMiddleware.OptionalAuth(next)
}

// feedResponse is one composed page on the wire
type feedResponse struct {
	Items       []models.Item     `json:"items"`
	Order       models.OrderKey   `json:"order"`
	SelectedTab string            `json:"selected_tab,omitempty"`
	Cursors     map[string]string `json:"cursors"`
	RequestID   string            `json:"request_id,omitempty"`
}

func (api *FeedAPI) handleChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/channel/"), "/")
	if code == "" {
		writeError(w, http.StatusBadRequest, "invalid_selector", "channel code is required")
		return
	}

	viewer, req, ok := api.prepare(w, r)
	if !ok {
		return
	}

	page, err := api.composer.Channel(r.Context(), code, viewer, req)
	api.respond(w, r, page, err)
}

func (api *FeedAPI) handleCommunity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/community"), "/")

	viewer, req, ok := api.prepare(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("no_sharer") == "" {
		req.NoSharer = api.communityNoSharer
	}

	page, err := api.composer.Community(r.Context(), content, viewer, req)
	api.respond(w, r, page, err)
}

func (api *FeedAPI) handleNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	viewer, req, ok := api.prepare(w, r)
	if !ok {
		return
	}

	page, err := api.composer.Network(r.Context(), viewer, req)
	api.respond(w, r, page, err)
}

func (api *FeedAPI) handleListChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid := auth.GetViewerID(r.Context())
	if uid == 0 {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	channels, err := api.channels.ListByUser(r.Context(), uid)
	if err != nil {
		api.logger.Error("Failed to list channels", logging.WithFields(map[string]interface{}{
			"uid":        uid,
			"error":      err.Error(),
			"request_id": RequestID(r.Context()),
		}))
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to list channels")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"channels": channels,
	})
}

// prepare loads the viewer and parses the request fields, writing the
// error response itself when it returns false
func (api *FeedAPI) prepare(w http.ResponseWriter, r *http.Request) (models.Viewer, timeline.Request, bool) {
	q := r.URL.Query()

	req, err := parseFeedRequest(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return models.Viewer{}, timeline.Request{}, false
	}

	viewer, err := api.viewers.Load(r.Context(), auth.GetViewerID(r.Context()))
	if err != nil {
		api.logger.Error("Failed to load viewer", logging.WithFields(map[string]interface{}{
			"error":      err.Error(),
			"request_id": RequestID(r.Context()),
		}))
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to load viewer")
		return models.Viewer{}, timeline.Request{}, false
	}
	viewer.AccountType = models.ParseAccountType(q.Get("accounttype"))
	if v := q.Get("mobile"); v != "" {
		viewer.Mobile, _ = strconv.ParseBool(v)
	}

	return viewer, req, true
}

func (api *FeedAPI) respond(w http.ResponseWriter, r *http.Request, page *models.Page, err error) {
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			api.logger.Error("Failed to compose page", logging.WithFields(map[string]interface{}{
				"path":       r.URL.Path,
				"error":      err.Error(),
				"request_id": RequestID(r.Context()),
			}))
		}
		writeError(w, status, code, err.Error())
		return
	}

	items := page.Items
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Items:       items,
		Order:       page.Order,
		SelectedTab: page.SelectedTab,
		Cursors:     page.CursorParams(),
		RequestID:   RequestID(r.Context()),
	})
}

// errorStatus maps the timeline error taxonomy onto HTTP
func errorStatus(err error) (int, string) {
	var storageErr *timeline.StorageError
	switch {
	case errors.Is(err, timeline.ErrInvalidFeedSelector):
		return http.StatusBadRequest, "invalid_selector"
	case errors.Is(err, timeline.ErrInvalidCursor):
		return http.StatusBadRequest, "invalid_cursor"
	case errors.Is(err, timeline.ErrChannelNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, timeline.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError, "storage_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// parseFeedRequest reads the paging and filter fields from the query string
func parseFeedRequest(q url.Values) (timeline.Request, error) {
	req := timeline.Request{
		MinID:     q.Get("min_id"),
		MaxID:     q.Get("max_id"),
		Order:     q.Get("order"),
		StoredTab: q.Get("tab"),
		Network:   q.Get("network"),
		NoSharer:  flag(q, "no_sharer"),
		Star:      flag(q, "star"),
		Mention:   flag(q, "mention"),
	}

	for _, order := range []models.OrderKey{models.OrderCreated, models.OrderReceived, models.OrderCommented, models.OrderURIID} {
		if v := q.Get("last_" + string(order)); v != "" {
			if req.Last == nil {
				req.Last = make(map[models.OrderKey]string)
			}
			req.Last[order] = v
		}
	}

	var err error
	if req.ItemURIID, err = intParam(q, "item"); err != nil {
		return req, err
	}
	if req.CircleID, err = intParam(q, "circle"); err != nil {
		return req, err
	}
	if req.ContactID, err = intParam(q, "contact"); err != nil {
		return req, err
	}
	count, err := intParam(q, "count")
	if err != nil {
		return req, err
	}
	req.ItemsPerPage = int(count)

	if from, ok := models.ParseDateFilter(q.Get("dateFrom")); ok {
		req.DateFrom = from
	}
	if to, ok := models.ParseDateFilter(q.Get("dateTo")); ok {
		req.DateTo = to
	}

	return req, nil
}

func intParam(q url.Values, key string) (int64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &paramError{key: key, value: v}
	}
	return n, nil
}

// flag accepts 1/true style values; anything else is false
func flag(q url.Values, key string) bool {
	b, _ := strconv.ParseBool(q.Get(key))
	return b
}

type paramError struct {
	key   string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.key + " parameter " + strconv.Quote(e.value)
}
