package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/umputun/socialfeed/pkg/domain"
	"github.com/umputun/socialfeed/pkg/feed"
	"github.com/umputun/socialfeed/pkg/repository"
)

// listConfigsHandler returns all registered feed configurations
func (s *Server) listConfigsHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := s.configs.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] failed to list configs: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, configs)
}

// createConfigHandler registers a new feed configuration
func (s *Server) createConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source    string `json:"source"`
		Username  string `json:"username"`
		Moderated bool   `json:"moderated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		renderError(w, r, fmt.Errorf("username is required"), http.StatusBadRequest)
		return
	}

	source, err := domain.ParseSource(req.Source)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	fc := domain.FeedConfig{Source: source, Username: req.Username, Moderated: req.Moderated}
	if err := s.configs.Create(r.Context(), &fc); err != nil {
		log.Printf("[ERROR] failed to create config: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusCreated, fc)
}

// setModeratedHandler flips the moderation flag of a configuration
func (s *Server) setModeratedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := configID(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	var req struct {
		Moderated bool `json:"moderated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}

	if err := s.configs.SetModerated(r.Context(), id, req.Moderated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			renderError(w, r, err, http.StatusNotFound)
			return
		}
		log.Printf("[ERROR] failed to update config %d: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	fc, err := s.configs.Get(r.Context(), id)
	if err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, fc)
}

// deleteConfigHandler removes a configuration with its moderation records
func (s *Server) deleteConfigHandler(w http.ResponseWriter, r *http.Request) {
	id, err := configID(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.configs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			renderError(w, r, err, http.StatusNotFound)
			return
		}
		log.Printf("[ERROR] failed to delete config %d: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// feedHandler returns the public feed of one configuration, moderation-aware
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := configID(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	fc, err := s.configs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			renderError(w, r, err, http.StatusNotFound)
			return
		}
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	// search and cache bypass apply to live fetches only, a moderated
	// configuration always serves its stored approvals
	query := r.URL.Query().Get("q")
	noCache := r.URL.Query().Get("no_cache") == "true"

	var items []domain.Item
	if !fc.Moderated && (query != "" || noCache) {
		items, err = s.feeds.Live(r.Context(), fc, feed.Options{Limit: limitParam(r), Query: query, NoCache: noCache})
	} else {
		items, err = s.feeds.Feed(r.Context(), fc, limitParam(r))
	}
	if err != nil {
		log.Printf("[ERROR] failed to get feed %s: %v", fc, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	renderJSON(w, r, http.StatusOK, items)
}

// mergedFeedHandler combines all configured feeds into one list
func (s *Server) mergedFeedHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := s.configs.List(r.Context())
	if err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	items, err := s.feeds.Merge(r.Context(), configs, limitParam(r))
	if err != nil {
		log.Printf("[ERROR] failed to merge feeds: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	renderJSON(w, r, http.StatusOK, items)
}

// queueEntry is one live post in the moderation queue with its approval state
type queueEntry struct {
	Original domain.Item `json:"original"`
	Allowed  bool        `json:"allowed"`
}

// moderationQueueHandler returns fresh live posts for operator review. The
// fetch bypasses the cache so an approval decision always sees the current
// upstream state, optional q narrows the list by search term.
func (s *Server) moderationQueueHandler(w http.ResponseWriter, r *http.Request) {
	id, err := configID(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	fc, err := s.configs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			renderError(w, r, err, http.StatusNotFound)
			return
		}
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	opts := feed.Options{Limit: limitParam(r), Query: r.URL.Query().Get("q"), NoCache: true}
	items, err := s.feeds.Live(r.Context(), fc, opts)
	if err != nil {
		log.Printf("[ERROR] failed to fetch queue for %s: %v", fc, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	approvedIDs, err := s.moderated.ExternalIDs(r.Context(), id)
	if err != nil {
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	approved := make(map[string]struct{}, len(approvedIDs))
	for _, extID := range approvedIDs {
		approved[extID] = struct{}{}
	}

	entries := make([]queueEntry, 0, len(items))
	for _, item := range items {
		_, ok := approved[item.ID]
		entries = append(entries, queueEntry{Original: item, Allowed: ok})
	}
	renderJSON(w, r, http.StatusOK, entries)
}

// approveHandler records an operator approval for a post
func (s *Server) approveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := configID(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	var req struct {
		Original json.RawMessage `json:"original"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if len(req.Original) == 0 {
		renderError(w, r, fmt.Errorf("original post is required"), http.StatusBadRequest)
		return
	}

	if _, err := s.configs.Get(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			renderError(w, r, err, http.StatusNotFound)
			return
		}
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	rec, created, err := s.moderated.GetOrCreateFor(r.Context(), id, string(req.Original))
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	renderJSON(w, r, code, rec)
}

// removeApprovalHandler revokes an approval, the post leaves the public feed
func (s *Server) removeApprovalHandler(w http.ResponseWriter, r *http.Request) {
	id, err := configID(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}
	postID := r.PathValue("postID")

	if err := s.moderated.Delete(r.Context(), id, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			renderError(w, r, err, http.StatusNotFound)
			return
		}
		log.Printf("[ERROR] failed to remove approval %s for config %d: %v", postID, id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// configID parses the configuration id from the route
func configID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid config ID")
	}
	return id, nil
}

// limitParam parses an optional limit query parameter, zero means unlimited
func limitParam(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
