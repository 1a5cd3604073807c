package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-manager/internal/form"
	"movie-manager/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestTier(t *testing.T) {
	cases := []struct {
		avg  *float64
		want RatingTier
	}{
		{nil, TierNeutral},
		{ptr(0.0), TierNeutral},
		{ptr(9.1), TierGreen},
		{ptr(8.0), TierGreen},
		{ptr(7.99), TierYellow},
		{ptr(6.0), TierYellow},
		{ptr(4.0), TierOrange},
		{ptr(3.9), TierRed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Tier(tc.avg))
	}
}

func TestFormatReleaseDate(t *testing.T) {
	assert.Equal(t, "Unknown date", FormatReleaseDate(""))
	assert.Equal(t, "Jul 16, 2010", FormatReleaseDate("2010-07-16"))
	assert.Equal(t, "Invalid date", FormatReleaseDate("sometime soon"))
	assert.Equal(t, "Invalid date", FormatReleaseDate("2010-13-40"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, noDescription, Truncate("  ", 10))
	assert.Equal(t, "short", Truncate("short", 10))

	got := Truncate(strings.Repeat("é", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCard(t *testing.T) {
	b := NewBuilder("https://img.example/w500/")
	m := models.Movie{
		ID:          27205,
		Title:       "Inception",
		Overview:    "Dreams.",
		PosterPath:  "/poster.jpg",
		ReleaseDate: "2010-07-15",
		VoteAverage: ptr(8.364),
		VoteCount:   ptr(35210),
		GenreIDs:    []int{28, 999},
	}

	c := b.Card(m, map[int]string{28: "Action"})
	assert.Equal(t, "https://img.example/w500/poster.jpg", c.PosterURL)
	assert.False(t, c.Placeholder)
	assert.Equal(t, "8.4", c.Rating)
	assert.Equal(t, TierGreen, c.Tier)
	assert.Equal(t, "Jul 15, 2010", c.ReleaseDate)
	assert.Equal(t, "35,210 votes", c.Votes)
	assert.Equal(t, []string{"Action"}, c.Genres)
	assert.Equal(t, "/api/v1/form/edit/27205", c.EditPath)
}

func TestCard_LocalMovieWithoutExtras(t *testing.T) {
	b := NewBuilder("")
	c := b.Card(models.Movie{ID: 1, Title: "Mine", PosterPath: "https://cdn.example/p.png"}, nil)

	assert.Equal(t, "https://cdn.example/p.png", c.PosterURL)
	assert.Empty(t, c.Rating)
	assert.Equal(t, TierNeutral, c.Tier)
	assert.Equal(t, "Unknown date", c.ReleaseDate)
	assert.Equal(t, noDescription, c.Description)
	assert.Empty(t, c.Votes)

	c = b.Card(models.Movie{ID: 2}, nil)
	assert.True(t, c.Placeholder)
}

func TestPage_States(t *testing.T) {
	b := NewBuilder("")

	loading := b.Page(models.CatalogState{Loading: true}, form.State{}, nil)
	assert.True(t, loading.Loading)
	assert.False(t, loading.Empty)

	empty := b.Page(models.CatalogState{}, form.State{}, nil)
	assert.True(t, empty.Empty)
	assert.Equal(t, emptyMessage, empty.EmptyMessage)

	full := b.Page(models.CatalogState{FilteredMovies: []models.Movie{{ID: 1, Title: "A"}}, Movies: []models.Movie{{ID: 1}, {ID: 2}}}, form.State{}, nil)
	assert.False(t, full.Empty)
	assert.Len(t, full.Cards, 1, "cards follow the filtered sequence")
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	b := NewBuilder("")

	var buf bytes.Buffer
	st := models.CatalogState{
		FilteredMovies: []models.Movie{{ID: 5, Title: "Heat <1995>", VoteAverage: ptr(8.3), ReleaseDate: "1995-12-15"}},
		CurrentPage:    1,
		TotalPages:     1,
		Error:          "Failed to search movies",
	}
	require.NoError(t, r.Render(&buf, b.Page(st, form.State{Mode: form.ModeEdit}, nil)))

	html := buf.String()
	assert.Contains(t, html, "Heat &lt;1995&gt;")
	assert.Contains(t, html, "tier-green")
	assert.Contains(t, html, "Dec 15, 1995")
	assert.Contains(t, html, "Failed to search movies")
	assert.Contains(t, html, "Update Movie")
	assert.Contains(t, html, "No image available")

	buf.Reset()
	require.NoError(t, r.Render(&buf, b.Page(models.CatalogState{}, form.State{Mode: form.ModeCreate}, nil)))
	assert.Contains(t, buf.String(), "No movies found")
	assert.Contains(t, buf.String(), "Add Movie")
}
