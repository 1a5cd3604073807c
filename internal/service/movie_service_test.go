package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-manager/internal/models"
	"movie-manager/internal/repository"
	"movie-manager/internal/tmdb"
)

type fakeCatalog struct {
	mu       sync.Mutex
	popular  func(page int) (*models.PagedResult, error)
	search   func(query string, page int) (*models.PagedResult, error)
	detail   func(id int) (*models.Movie, error)
	genres   func() ([]models.Genre, error)
	searches []string
	calls    int
}

func (f *fakeCatalog) PopularMovies(_ context.Context, page int) (*models.PagedResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.popular(page)
}

func (f *fakeCatalog) SearchMovies(_ context.Context, query string, page int) (*models.PagedResult, error) {
	f.mu.Lock()
	f.calls++
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	return f.search(query, page)
}

func (f *fakeCatalog) MovieDetail(_ context.Context, id int) (*models.Movie, error) {
	return f.detail(id)
}

func (f *fakeCatalog) Genres(_ context.Context) ([]models.Genre, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.genres()
}

func result(page int, movies ...models.Movie) *models.PagedResult {
	return &models.PagedResult{Page: page, Results: movies, TotalPages: 5, TotalResults: 100}
}

func newTestService(fc *fakeCatalog) *MovieService {
	return NewMovieService(repository.NewMovieRepository(), fc, 0)
}

func TestLoadPopular_ReplacesBothSequences(t *testing.T) {
	fc := &fakeCatalog{popular: func(page int) (*models.PagedResult, error) {
		return result(page, models.Movie{ID: 1, Title: "A"}, models.Movie{ID: 2, Title: "B"}), nil
	}}
	svc := newTestService(fc)

	require.NoError(t, svc.LoadPopular(context.Background(), 2))

	st := svc.State()
	assert.Len(t, st.Movies, 2)
	assert.Len(t, st.FilteredMovies, 2)
	assert.Equal(t, 2, st.CurrentPage)
	assert.Equal(t, 5, st.TotalPages)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestSearch_InceptionScenario(t *testing.T) {
	fc := &fakeCatalog{
		popular: func(page int) (*models.PagedResult, error) {
			return result(1, models.Movie{ID: 1, Title: "A"}), nil
		},
		search: func(query string, page int) (*models.PagedResult, error) {
			assert.Equal(t, "Inception", query)
			assert.Equal(t, 1, page)
			return &models.PagedResult{Page: 1, Results: []models.Movie{{ID: 27205, Title: "Inception"}}, TotalPages: 1, TotalResults: 1}, nil
		},
	}
	svc := newTestService(fc)
	require.NoError(t, svc.LoadPopular(context.Background(), 1))

	require.NoError(t, svc.Search(context.Background(), "Inception", 1))

	st := svc.State()
	require.Len(t, st.FilteredMovies, 1)
	assert.Equal(t, 27205, st.FilteredMovies[0].ID)
	assert.Equal(t, 1, st.TotalPages)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	require.Len(t, st.Movies, 1, "catalog untouched by search")
	assert.Equal(t, 1, st.Movies[0].ID)
}

func TestSearch_BlankQueryLoadsPopular(t *testing.T) {
	fc := &fakeCatalog{popular: func(page int) (*models.PagedResult, error) {
		return result(page, models.Movie{ID: 7}), nil
	}}
	svc := newTestService(fc)

	require.NoError(t, svc.Search(context.Background(), "   ", 1))
	assert.Empty(t, fc.searches)
	assert.Len(t, svc.State().Movies, 1)
}

func TestLoadPopular_ServerErrorKeepsPriorState(t *testing.T) {
	fail := false
	fc := &fakeCatalog{popular: func(page int) (*models.PagedResult, error) {
		if fail {
			return nil, &tmdb.RequestError{Op: "popular movies", StatusCode: http.StatusInternalServerError}
		}
		return result(1, models.Movie{ID: 1}), nil
	}}
	svc := newTestService(fc)
	require.NoError(t, svc.LoadPopular(context.Background(), 1))

	fail = true
	err := svc.LoadPopular(context.Background(), 1)
	require.Error(t, err)

	var reqErr *tmdb.RequestError
	assert.True(t, errors.As(err, &reqErr))

	st := svc.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "Failed to fetch popular movies", st.Error)
	assert.Len(t, st.Movies, 1)
	assert.Len(t, st.FilteredMovies, 1)

	svc.ClearError()
	assert.Empty(t, svc.State().Error)
}

func TestSearch_FailureMessage(t *testing.T) {
	fc := &fakeCatalog{search: func(string, int) (*models.PagedResult, error) {
		return nil, errors.New("connection refused")
	}}
	svc := newTestService(fc)

	require.Error(t, svc.Search(context.Background(), "x", 1))
	assert.Equal(t, "Failed to search movies", svc.State().Error)
}

func TestSearch_StaleResponseDoesNotOverwriteNewer(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fc := &fakeCatalog{search: func(query string, page int) (*models.PagedResult, error) {
		if query == "slow" {
			close(started)
			<-release
			return result(1, models.Movie{ID: 1, Title: "slow"}), nil
		}
		return result(1, models.Movie{ID: 2, Title: "fast"}), nil
	}}
	svc := newTestService(fc)

	done := make(chan error)
	go func() { done <- svc.Search(context.Background(), "slow", 1) }()
	<-started

	require.NoError(t, svc.Search(context.Background(), "fast", 1))
	assert.True(t, svc.State().Loading, "slow request still outstanding")

	close(release)
	require.NoError(t, <-done)

	st := svc.State()
	assert.False(t, st.Loading)
	require.Len(t, st.FilteredMovies, 1)
	assert.Equal(t, "fast", st.FilteredMovies[0].Title)
}

func TestLoading_TrueWhileRequestOutstanding(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fc := &fakeCatalog{popular: func(page int) (*models.PagedResult, error) {
		close(started)
		<-release
		return nil, errors.New("boom")
	}}
	svc := newTestService(fc)

	done := make(chan error)
	go func() { done <- svc.LoadPopular(context.Background(), 1) }()
	<-started
	assert.True(t, svc.State().Loading)

	close(release)
	require.Error(t, <-done)
	assert.False(t, svc.State().Loading)
}

func TestAddLocal_DuneScenario(t *testing.T) {
	fc := &fakeCatalog{popular: func(page int) (*models.PagedResult, error) {
		return result(1, models.Movie{ID: 1, Title: "A"}), nil
	}}
	svc := newTestService(fc)
	require.NoError(t, svc.LoadPopular(context.Background(), 1))

	m, err := svc.AddLocal(context.Background(), models.MovieFormData{Title: "Dune", Overview: "Spice."})
	require.NoError(t, err)
	assert.NotEqual(t, 1, m.ID)

	st := svc.State()
	require.Len(t, st.Movies, 2)
	require.Len(t, st.FilteredMovies, 2)
	assert.Equal(t, m, st.Movies[0])
	assert.Equal(t, m, st.FilteredMovies[0])
}

func TestAddLocal_FilteredOnlyWhenMatchingSearch(t *testing.T) {
	svc := newTestService(&fakeCatalog{})
	svc.SetSearchText("BLADE")

	match, err := svc.AddLocal(context.Background(), models.MovieFormData{Title: "Blade Runner", Overview: "o"})
	require.NoError(t, err)
	_, err = svc.AddLocal(context.Background(), models.MovieFormData{Title: "Heat", Overview: "o"})
	require.NoError(t, err)

	st := svc.State()
	assert.Len(t, st.Movies, 2)
	require.Len(t, st.FilteredMovies, 1)
	assert.Equal(t, match.ID, st.FilteredMovies[0].ID)
}

func TestAddLocal_IDsUnique(t *testing.T) {
	svc := newTestService(&fakeCatalog{})
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		m, err := svc.AddLocal(context.Background(), models.MovieFormData{Title: "t", Overview: "o"})
		require.NoError(t, err)
		require.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
	}
}

func TestUpdateLocal_ReplacesInPlace(t *testing.T) {
	fc := &fakeCatalog{
		popular: func(int) (*models.PagedResult, error) {
			return result(1, models.Movie{ID: 1, Title: "A"}, models.Movie{ID: 2, Title: "B"}), nil
		},
		search: func(string, int) (*models.PagedResult, error) {
			return result(1, models.Movie{ID: 2, Title: "B"}), nil
		},
	}
	svc := newTestService(fc)
	require.NoError(t, svc.LoadPopular(context.Background(), 1))
	require.NoError(t, svc.Search(context.Background(), "b", 1))

	updated := models.Movie{ID: 2, Title: "B2", Overview: "new"}
	_, err := svc.UpdateLocal(context.Background(), updated)
	require.NoError(t, err)

	st := svc.State()
	assert.Equal(t, "A", st.Movies[0].Title)
	assert.Equal(t, updated, st.Movies[1])
	assert.Equal(t, updated, st.FilteredMovies[0])

	_, err = svc.UpdateLocal(context.Background(), models.Movie{ID: 404, Title: "ghost"})
	require.NoError(t, err)
	assert.Len(t, svc.State().Movies, 2)
}

func TestAddLocal_HonoursCancellation(t *testing.T) {
	svc := NewMovieService(repository.NewMovieRepository(), &fakeCatalog{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AddLocal(ctx, models.MovieFormData{Title: "t", Overview: "o"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, svc.State().Movies)
}

func TestMovieDetail_LocalFirstThenRemote(t *testing.T) {
	fc := &fakeCatalog{detail: func(id int) (*models.Movie, error) {
		if id == 27205 {
			return &models.Movie{ID: id, Title: "Inception"}, nil
		}
		return nil, &tmdb.RequestError{StatusCode: http.StatusNotFound}
	}}
	svc := newTestService(fc)
	local, err := svc.AddLocal(context.Background(), models.MovieFormData{Title: "Mine", Overview: "o"})
	require.NoError(t, err)

	got, err := svc.MovieDetail(context.Background(), local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)

	got, err = svc.MovieDetail(context.Background(), 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", got.Title)

	_, err = svc.MovieDetail(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestGenreNames_MemoizesSuccessRetriesFailure(t *testing.T) {
	fail := true
	fc := &fakeCatalog{genres: func() ([]models.Genre, error) {
		if fail {
			return nil, errors.New("down")
		}
		return []models.Genre{{ID: 28, Name: "Action"}}, nil
	}}
	svc := newTestService(fc)
	svc.genreBackoff = 0

	assert.Empty(t, svc.GenreNames(context.Background()))
	fail = false
	assert.Equal(t, "Action", svc.GenreNames(context.Background())[28])
	svc.GenreNames(context.Background())
	assert.Equal(t, 2, fc.calls)
}

func TestGenreNames_FailureBacksOff(t *testing.T) {
	fc := &fakeCatalog{genres: func() ([]models.Genre, error) {
		return nil, errors.New("no api key")
	}}
	svc := newTestService(fc)

	for range 5 {
		assert.Empty(t, svc.GenreNames(context.Background()))
	}
	assert.Equal(t, 1, fc.calls)

	svc.genreMu.Lock()
	svc.genreFailed = time.Now().Add(-2 * genreRetryBackoff)
	svc.genreMu.Unlock()
	svc.GenreNames(context.Background())
	assert.Equal(t, 2, fc.calls)
}

func TestGenreNames_ConcurrentCallersShareOneLoad(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	fc := &fakeCatalog{genres: func() ([]models.Genre, error) {
		entered <- struct{}{}
		<-release
		return []models.Genre{{ID: 18, Name: "Drama"}}, nil
	}}
	svc := newTestService(fc)

	var wg sync.WaitGroup
	results := make([]map[int]string, 4)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = svc.GenreNames(context.Background())
	}()
	<-entered

	// The load in flight must not hold the state lock.
	assert.True(t, svc.genreMu.TryLock())
	svc.genreMu.Unlock()

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.GenreNames(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "Drama", r[18])
	}
	assert.Equal(t, 1, fc.calls)
}
