// Package view builds the render models and HTML for the catalog page.
package view

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"movie-manager/internal/form"
	"movie-manager/internal/models"
)

// RatingTier is the color band of a rating badge.
type RatingTier string

const (
	TierNeutral RatingTier = "neutral"
	TierGreen   RatingTier = "green"
	TierYellow  RatingTier = "yellow"
	TierOrange  RatingTier = "orange"
	TierRed     RatingTier = "red"
)

const (
	maxDescriptionRunes = 160
	noDescription       = "No description available."
	emptyMessage        = "No movies found. Try a different search term or add a new movie."
)

var printer = message.NewPrinter(language.English)

// Card is one movie tile.
type Card struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	PosterURL   string     `json:"poster_url,omitempty"`
	Placeholder bool       `json:"placeholder"`
	Rating      string     `json:"rating,omitempty"`
	Tier        RatingTier `json:"rating_tier"`
	ReleaseDate string     `json:"release_date"`
	Votes       string     `json:"votes,omitempty"`
	Description string     `json:"description"`
	Genres      []string   `json:"genres,omitempty"`
	EditPath    string     `json:"edit_path"`
}

// Page is everything the catalog page shows.
type Page struct {
	Loading      bool       `json:"loading"`
	Empty        bool       `json:"empty"`
	EmptyMessage string     `json:"empty_message,omitempty"`
	Error        string     `json:"error,omitempty"`
	SearchQuery  string     `json:"search_query"`
	CurrentPage  int        `json:"current_page"`
	TotalPages   int        `json:"total_pages"`
	Cards        []Card     `json:"cards"`
	Form         form.State `json:"form"`
}

// Builder turns store state into view models.
type Builder struct {
	imageBase string
}

// NewBuilder creates a Builder that prefixes poster paths with imageBase.
func NewBuilder(imageBase string) *Builder {
	if imageBase == "" {
		imageBase = models.TMDBImageBaseW500
	}
	return &Builder{imageBase: strings.TrimRight(imageBase, "/")}
}

// Page builds the page model for the filtered sequence of st.
func (b *Builder) Page(st models.CatalogState, fs form.State, genres map[int]string) Page {
	p := Page{
		Loading:     st.Loading,
		Error:       st.Error,
		SearchQuery: st.SearchQuery,
		CurrentPage: st.CurrentPage,
		TotalPages:  st.TotalPages,
		Cards:       b.Cards(st.FilteredMovies, genres),
		Form:        fs,
	}
	if !p.Loading && len(p.Cards) == 0 {
		p.Empty = true
		p.EmptyMessage = emptyMessage
	}
	return p
}

// Cards builds one card per movie, in order.
func (b *Builder) Cards(movies []models.Movie, genres map[int]string) []Card {
	cards := make([]Card, 0, len(movies))
	for _, m := range movies {
		cards = append(cards, b.Card(m, genres))
	}
	return cards
}

// Card builds the card for m.
func (b *Builder) Card(m models.Movie, genres map[int]string) Card {
	c := Card{
		ID:          m.ID,
		Title:       m.Title,
		PosterURL:   b.PosterURL(m.PosterPath),
		Tier:        Tier(m.VoteAverage),
		ReleaseDate: FormatReleaseDate(m.ReleaseDate),
		Description: Truncate(m.Overview, maxDescriptionRunes),
		EditPath:    fmt.Sprintf("/api/v1/form/edit/%d", m.ID),
	}
	c.Placeholder = c.PosterURL == ""
	if c.Tier != TierNeutral {
		c.Rating = fmt.Sprintf("%.1f", *m.VoteAverage)
	}
	if m.VoteCount != nil && *m.VoteCount > 0 {
		c.Votes = printer.Sprintf("%d votes", *m.VoteCount)
	}
	for _, id := range m.GenreIDs {
		if name, ok := genres[id]; ok {
			c.Genres = append(c.Genres, name)
		}
	}
	return c
}

// PosterURL resolves a poster reference. Absolute URLs pass through; path
// fragments are joined to the image base. Empty means no poster.
func (b *Builder) PosterURL(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "/"):
		return b.imageBase + ref
	default:
		return b.imageBase + "/" + ref
	}
}

// Tier bands a 0–10 rating. A missing or zero rating is neutral.
func Tier(avg *float64) RatingTier {
	if avg == nil || *avg == 0 {
		return TierNeutral
	}
	switch r := *avg; {
	case r >= 8:
		return TierGreen
	case r >= 6:
		return TierYellow
	case r >= 4:
		return TierOrange
	default:
		return TierRed
	}
}

var releaseLayouts = []string{"2006-01-02", time.RFC3339, "2006-01", "2006"}

// FormatReleaseDate renders a release date as "Jan 2, 2006".
func FormatReleaseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown date"
	}
	for _, layout := range releaseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return "Invalid date"
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return noDescription
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
