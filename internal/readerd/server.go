package readerd

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"tanko/internal/catalog"
	"tanko/internal/config"
	"tanko/internal/resolver"
)

type apiServer struct {
	bind      string
	token     string
	logger    *slog.Logger
	store     *catalog.Store
	resolvers *resolverSet
	daemon    *Daemon

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, store *catalog.Store, resolvers *resolverSet, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		token:     cfg.Paths.APIToken,
		logger:    logger,
		store:     store,
		resolvers: resolvers,
		daemon:    d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/manga", srv.handleMangaList)
	mux.HandleFunc("/api/manga/", srv.handleMangaSubtree)
	srv.handler = srv.requireToken(mux)

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			supplied, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(supplied), []byte(s.token)) != 1 {
				s.writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summaries, err := s.store.ListManga(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:      status.Running,
		PID:          os.Getpid(),
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		MangaCount:   len(summaries),
	})
}

func (s *apiServer) handleMangaList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summaries, err := s.store.ListManga(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := MangaListResponse{Manga: make([]MangaPayload, 0, len(summaries))}
	for _, summary := range summaries {
		entry := mangaPayload(summary.Manga)
		entry.VolumeCount = summary.VolumeCount
		payload.Manga = append(payload.Manga, entry)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// handleMangaSubtree dispatches everything under /api/manga/{slug}.
func (s *apiServer) handleMangaSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/manga/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.writeError(w, http.StatusNotFound, "manga not found")
		return
	}
	slug := segments[0]

	switch {
	case len(segments) == 1:
		s.handleMangaDetail(w, r, slug)
	case len(segments) == 2 && segments[1] == "bookmark":
		s.handleBookmark(w, r, slug)
	case len(segments) == 3 && segments[1] == "volumes":
		s.handleVolumeDetail(w, r, slug, segments[2])
	case len(segments) == 5 && segments[1] == "volumes" && segments[3] == "pages":
		s.handlePage(w, r, slug, segments[2], segments[4])
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleMangaDetail(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	manga, ok := s.lookupManga(w, r, slug)
	if !ok {
		return
	}
	volumes, err := s.store.ListVolumes(r.Context(), manga.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := MangaDetailResponse{
		Manga:   mangaPayload(*manga),
		Volumes: make([]VolumePayload, 0, len(volumes)),
	}
	for _, vol := range volumes {
		payload.Volumes = append(payload.Volumes, volumePayload(vol))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleVolumeDetail(w http.ResponseWriter, r *http.Request, slug, volumeStr string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_, vol, res, ok := s.lookupVolume(w, r, slug, volumeStr)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, VolumeDetailResponse{
		Volume:             volumePayload(*vol),
		EffectivePageCount: res.EffectivePageCount(),
	})
}

// handlePage resolves one page view. The path page number is the requested
// logical page; ?from=N&dir=forward|backward instead navigates relative to a
// previously viewed page, which is how the reader flips past spreads.
func (s *apiServer) handlePage(w http.ResponseWriter, r *http.Request, slug, volumeStr, pageStr string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	_, vol, res, ok := s.lookupVolume(w, r, slug, volumeStr)
	if !ok {
		return
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	if page > vol.PageCount {
		s.writeError(w, http.StatusNotFound, "page out of range")
		return
	}
	target := page - 1

	query := r.URL.Query()
	if fromStr := query.Get("from"); fromStr != "" {
		from, err := strconv.Atoi(fromStr)
		if err != nil || from < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid from page")
			return
		}
		dir := resolver.Forward
		switch query.Get("dir") {
		case "", "forward", "next":
		case "backward", "prev":
			dir = resolver.Backward
		default:
			s.writeError(w, http.StatusBadRequest, "invalid direction")
			return
		}
		target = res.Advance(from-1, dir)
	}

	result := res.Probe(r.Context(), target)
	s.writeJSON(w, http.StatusOK, PageResponse{
		Page:               result.Start + 1,
		Kind:               result.Kind.String(),
		URL:                result.URL,
		FirstPage:          result.Start + 1,
		LastPage:           result.End + 1,
		EffectivePageCount: res.EffectivePageCount(),
	})
}

func (s *apiServer) handleBookmark(w http.ResponseWriter, r *http.Request, slug string) {
	manga, ok := s.lookupManga(w, r, slug)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		bookmark, err := s.store.GetBookmark(r.Context(), manga.ID)
		if errors.Is(err, catalog.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no bookmark set")
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, BookmarkPayload{
			VolumeNumber: bookmark.VolumeNumber,
			PageNumber:   bookmark.PageNumber,
			PageURL:      bookmark.PageURL,
			UpdatedAt:    bookmark.UpdatedAt,
		})
	case http.MethodPut:
		var payload BookmarkPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid bookmark payload")
			return
		}
		if payload.VolumeNumber < 1 || payload.PageNumber < 1 {
			s.writeError(w, http.StatusBadRequest, "volume and page must be positive")
			return
		}
		if payload.PageURL == "" {
			s.writeError(w, http.StatusBadRequest, "page_url is required")
			return
		}
		err := s.store.SetBookmark(r.Context(), catalog.Bookmark{
			MangaID:      manga.ID,
			VolumeNumber: payload.VolumeNumber,
			PageNumber:   payload.PageNumber,
			PageURL:      payload.PageURL,
		})
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, payload)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) lookupManga(w http.ResponseWriter, r *http.Request, slug string) (*catalog.Manga, bool) {
	manga, err := s.store.GetMangaBySlug(r.Context(), slug)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "manga not found")
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return manga, true
}

func (s *apiServer) lookupVolume(w http.ResponseWriter, r *http.Request, slug, volumeStr string) (*catalog.Manga, *catalog.Volume, *resolver.Resolver, bool) {
	manga, ok := s.lookupManga(w, r, slug)
	if !ok {
		return nil, nil, nil, false
	}
	number, err := strconv.Atoi(volumeStr)
	if err != nil || number < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid volume number")
		return nil, nil, nil, false
	}
	vol, err := s.store.GetVolume(r.Context(), manga.ID, number)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "volume not found")
		return nil, nil, nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, nil, false
	}
	return manga, vol, s.resolvers.get(manga, vol), true
}

func mangaPayload(manga catalog.Manga) MangaPayload {
	return MangaPayload{
		ID:           manga.ID,
		Title:        manga.Title,
		Slug:         manga.Slug,
		CoverURL:     manga.CoverURL,
		TotalVolumes: manga.TotalVolumes,
		Status:       string(manga.Status),
		UpdatedAt:    manga.UpdatedAt,
	}
}

func volumePayload(vol catalog.Volume) VolumePayload {
	return VolumePayload{
		VolumeNumber: vol.VolumeNumber,
		PageCount:    vol.PageCount,
		ChapterRange: vol.ChapterRange,
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// Handler exposes the routed handler, token middleware included.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}
