package repository

import (
	"strings"
	"sync"

	"movie-manager/internal/models"
)

// localIDBase sits above the TMDB id range so local ids never shadow remote ones.
const localIDBase = 1_000_000_000

// MovieRepository holds the catalog state of one session in memory.
type MovieRepository struct {
	mu sync.Mutex

	movies   []models.Movie
	filtered []models.Movie

	inFlight    int
	errMsg      string
	searchQuery string
	page        int
	totalPages  int
	total       int

	issued  uint64
	applied uint64
	nextID  int
}

// NewMovieRepository creates an empty MovieRepository.
func NewMovieRepository() *MovieRepository {
	return &MovieRepository{
		movies:     []models.Movie{},
		filtered:   []models.Movie{},
		page:       1,
		totalPages: 1,
		nextID:     localIDBase,
	}
}

// BeginRequest marks a fetch or search as outstanding and returns its sequence number.
// The error message is cleared.
func (r *MovieRepository) BeginRequest() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.issued++
	r.inFlight++
	r.errMsg = ""
	return r.issued
}

// CompleteRequest applies the outcome of request seq. Only the newest issued
// request may write; older ones are discarded. It reports whether the outcome
// was applied.
func (r *MovieRepository) CompleteRequest(seq uint64, result *models.PagedResult, replaceCatalog bool, errMsg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight > 0 {
		r.inFlight--
	}
	if seq != r.issued || seq <= r.applied {
		return false
	}
	r.applied = seq

	if errMsg != "" {
		r.errMsg = errMsg
		return true
	}

	results := cloneMovies(result.Results)
	if replaceCatalog {
		r.movies = cloneMovies(results)
	}
	r.filtered = results
	r.page = result.Page
	r.totalPages = result.TotalPages
	r.total = result.TotalResults
	return true
}

// InsertLocal assigns m a fresh id and puts it at the front of the catalog,
// and at the front of the filtered sequence when it matches the search text.
func (r *MovieRepository) InsertLocal(m models.Movie) models.Movie {
	r.mu.Lock()
	defer r.mu.Unlock()

	m = m.Clone()
	m.ID = r.mintIDLocked()

	r.movies = append([]models.Movie{m}, r.movies...)
	if matchesSearch(m.Title, r.searchQuery) {
		r.filtered = append([]models.Movie{m.Clone()}, r.filtered...)
	}
	return m.Clone()
}

// Replace swaps the entry sharing m.ID in each sequence. Sequences without
// that id are left alone. It reports whether any sequence changed.
func (r *MovieRepository) Replace(m models.Movie) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	inCatalog := replaceByID(r.movies, m)
	inFiltered := replaceByID(r.filtered, m)
	return inCatalog || inFiltered
}

// Find looks m up by id, catalog first.
func (r *MovieRepository) Find(id int) (models.Movie, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, seq := range [][]models.Movie{r.movies, r.filtered} {
		if i := indexByID(seq, id); i >= 0 {
			return seq[i].Clone(), true
		}
	}
	return models.Movie{}, false
}

// SetSearchQuery records the shared search text.
func (r *MovieRepository) SetSearchQuery(q string) {
	r.mu.Lock()
	r.searchQuery = strings.Clone(q)
	r.mu.Unlock()
}

// SearchQuery returns the shared search text.
func (r *MovieRepository) SearchQuery() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.searchQuery
}

// ClearError drops the recorded error message.
func (r *MovieRepository) ClearError() {
	r.mu.Lock()
	r.errMsg = ""
	r.mu.Unlock()
}

// Snapshot returns a deep copy of the catalog state.
func (r *MovieRepository) Snapshot() models.CatalogState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.CatalogState{
		Movies:         cloneMovies(r.movies),
		FilteredMovies: cloneMovies(r.filtered),
		Loading:        r.inFlight > 0,
		Error:          r.errMsg,
		SearchQuery:    r.searchQuery,
		CurrentPage:    r.page,
		TotalPages:     r.totalPages,
		TotalResults:   r.total,
	}
}

func (r *MovieRepository) mintIDLocked() int {
	for {
		id := r.nextID
		r.nextID++
		if indexByID(r.movies, id) < 0 && indexByID(r.filtered, id) < 0 {
			return id
		}
	}
}

func matchesSearch(title, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}

func replaceByID(seq []models.Movie, m models.Movie) bool {
	i := indexByID(seq, m.ID)
	if i < 0 {
		return false
	}
	seq[i] = m.Clone()
	return true
}

func indexByID(seq []models.Movie, id int) int {
	for i := range seq {
		if seq[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneMovies(in []models.Movie) []models.Movie {
	out := make([]models.Movie, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
