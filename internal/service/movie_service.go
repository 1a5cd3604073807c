package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"movie-manager/internal/models"
	"movie-manager/internal/repository"
	"movie-manager/internal/tmdb"
)

const (
	genreRetryBackoff = time.Minute
	genreLoadTimeout  = 10 * time.Second
)

const (
	msgFetchPopularFailed = "Failed to fetch popular movies"
	msgSearchFailed       = "Failed to search movies"
)

// ErrMovieNotFound is returned when neither the session nor TMDB knows a movie.
var ErrMovieNotFound = errors.New("movie not found")

// CatalogClient is the read-only remote movie catalog.
type CatalogClient interface {
	PopularMovies(ctx context.Context, page int) (*models.PagedResult, error)
	SearchMovies(ctx context.Context, query string, page int) (*models.PagedResult, error)
	MovieDetail(ctx context.Context, id int) (*models.Movie, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// MovieService applies remote results and local edits to the catalog state.
type MovieService struct {
	repo    *repository.MovieRepository
	catalog CatalogClient
	latency time.Duration

	genreLoads   singleflight.Group
	genreMu      sync.Mutex
	genres       map[int]string
	genreFailed  time.Time
	genreBackoff time.Duration
}

// NewMovieService creates a new MovieService. Local adds and updates wait
// latency before completing to mimic a backend round trip.
func NewMovieService(repo *repository.MovieRepository, catalog CatalogClient, latency time.Duration) *MovieService {
	return &MovieService{
		repo:         repo,
		catalog:      catalog,
		latency:      latency,
		genreBackoff: genreRetryBackoff,
	}
}

// LoadPopular replaces the catalog and the filtered list with a page of popular movies.
func (s *MovieService) LoadPopular(ctx context.Context, page int) error {
	seq := s.repo.BeginRequest()

	result, err := s.catalog.PopularMovies(ctx, page)
	if err != nil {
		slog.Error("failed to fetch popular movies", "page", page, "seq", seq, "error", err)
		s.complete(seq, nil, true, msgFetchPopularFailed)
		return fmt.Errorf("load popular movies: %w", err)
	}

	s.complete(seq, result, true, "")
	return nil
}

// Search replaces the filtered list with search results, leaving the catalog intact.
// A blank query loads the popular listing instead.
func (s *MovieService) Search(ctx context.Context, query string, page int) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.LoadPopular(ctx, page)
	}

	seq := s.repo.BeginRequest()

	result, err := s.catalog.SearchMovies(ctx, query, page)
	if err != nil {
		slog.Error("failed to search movies", "query", query, "page", page, "seq", seq, "error", err)
		s.complete(seq, nil, false, msgSearchFailed)
		return fmt.Errorf("search movies: %w", err)
	}

	s.complete(seq, result, false, "")
	return nil
}

func (s *MovieService) complete(seq uint64, result *models.PagedResult, replaceCatalog bool, errMsg string) {
	if !s.repo.CompleteRequest(seq, result, replaceCatalog, errMsg) {
		slog.Debug("discarded stale catalog response", "seq", seq)
	}
}

// AddLocal creates a movie from form data without contacting any backend.
func (s *MovieService) AddLocal(ctx context.Context, data models.MovieFormData) (models.Movie, error) {
	if err := s.simulateRoundTrip(ctx); err != nil {
		return models.Movie{}, fmt.Errorf("add movie: %w", err)
	}

	m := s.repo.InsertLocal(data.Apply(models.Movie{}))
	slog.Info("added local movie", "id", m.ID, "title", m.Title)
	return m, nil
}

// UpdateLocal replaces the stored record sharing m.ID.
func (s *MovieService) UpdateLocal(ctx context.Context, m models.Movie) (models.Movie, error) {
	if err := s.simulateRoundTrip(ctx); err != nil {
		return models.Movie{}, fmt.Errorf("update movie: %w", err)
	}

	if !s.repo.Replace(m) {
		slog.Warn("update for unknown movie ignored", "id", m.ID)
	}
	return m, nil
}

func (s *MovieService) simulateRoundTrip(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetSearchText records the shared search text.
func (s *MovieService) SetSearchText(text string) {
	s.repo.SetSearchQuery(text)
}

// SearchText returns the shared search text.
func (s *MovieService) SearchText() string {
	return s.repo.SearchQuery()
}

// ClearError drops the current error message.
func (s *MovieService) ClearError() {
	s.repo.ClearError()
}

// State returns a snapshot of the catalog state.
func (s *MovieService) State() models.CatalogState {
	return s.repo.Snapshot()
}

// FindMovie returns the session's copy of a movie.
func (s *MovieService) FindMovie(id int) (models.Movie, bool) {
	return s.repo.Find(id)
}

// MovieDetail returns the session's copy of a movie, falling back to TMDB.
func (s *MovieService) MovieDetail(ctx context.Context, id int) (*models.Movie, error) {
	if m, ok := s.repo.Find(id); ok {
		return &m, nil
	}

	m, err := s.catalog.MovieDetail(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("get movie detail: %w", err)
	}
	return m, nil
}

// GenreNames returns the TMDB genre table, loading it on first use.
// Concurrent callers share one load. After a failed load an empty table is
// returned until the back-off has passed. The map must not be modified.
func (s *MovieService) GenreNames(ctx context.Context) map[int]string {
	s.genreMu.Lock()
	if s.genres != nil {
		names := s.genres
		s.genreMu.Unlock()
		return names
	}
	if !s.genreFailed.IsZero() && time.Since(s.genreFailed) < s.genreBackoff {
		s.genreMu.Unlock()
		return map[int]string{}
	}
	s.genreMu.Unlock()

	v, _, _ := s.genreLoads.Do("genres", func() (any, error) {
		return s.loadGenres(ctx), nil
	})
	return v.(map[int]string)
}

func (s *MovieService) loadGenres(ctx context.Context) map[int]string {
	// Detached from the caller: every waiting request shares the result.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), genreLoadTimeout)
	defer cancel()

	genres, err := s.catalog.Genres(ctx)

	s.genreMu.Lock()
	defer s.genreMu.Unlock()
	if err != nil {
		s.genreFailed = time.Now()
		slog.Warn("failed to load TMDB genres", "error", err, "retry_after", s.genreBackoff)
		return map[int]string{}
	}

	names := make(map[int]string, len(genres))
	for _, g := range genres {
		names[g.ID] = g.Name
	}
	s.genres = names
	s.genreFailed = time.Time{}
	slog.Info("loaded TMDB genres", "count", len(genres))
	return names
}

func isNotFound(err error) bool {
	var reqErr *tmdb.RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}
