package models

import "strings"

// Movie is a catalog entry, either fetched from TMDB or entered locally.
type Movie struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path,omitempty"`
	BackdropPath     string   `json:"backdrop_path,omitempty"`
	ReleaseDate      string   `json:"release_date,omitempty"`
	VoteAverage      *float64 `json:"vote_average,omitempty"`
	VoteCount        *int     `json:"vote_count,omitempty"`
	Popularity       float64  `json:"popularity,omitempty"`
	GenreIDs         []int    `json:"genre_ids,omitempty"`
	Adult            bool     `json:"adult,omitempty"`
	Video            bool     `json:"video,omitempty"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	OriginalTitle    string   `json:"original_title,omitempty"`
}

// Clone returns a copy that shares no mutable memory with m.
func (m Movie) Clone() Movie {
	c := m
	if m.VoteAverage != nil {
		v := *m.VoteAverage
		c.VoteAverage = &v
	}
	if m.VoteCount != nil {
		v := *m.VoteCount
		c.VoteCount = &v
	}
	if m.GenreIDs != nil {
		c.GenreIDs = append([]int(nil), m.GenreIDs...)
	}
	return c
}

// PagedResult is one page of a TMDB listing or search.
type PagedResult struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Genre is a TMDB movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieFormData holds the user-editable fields of a movie.
type MovieFormData struct {
	Title       string `json:"title" form:"title" validate:"required,notblank"`
	Overview    string `json:"overview" form:"overview" validate:"required,notblank"`
	PosterPath  string `json:"poster_path,omitempty" form:"poster_path" validate:"omitempty,poster"`
	ReleaseDate string `json:"release_date,omitempty" form:"release_date" validate:"omitempty,datetime=2006-01-02"`
}

// Clone returns a copy of d whose strings own their memory.
func (d MovieFormData) Clone() MovieFormData {
	return MovieFormData{
		Title:       strings.Clone(d.Title),
		Overview:    strings.Clone(d.Overview),
		PosterPath:  strings.Clone(d.PosterPath),
		ReleaseDate: strings.Clone(d.ReleaseDate),
	}
}

// FormDataOf extracts the editable fields of m.
func FormDataOf(m Movie) MovieFormData {
	return MovieFormData{
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
	}
}

// Apply returns m with the editable fields replaced by d.
func (d MovieFormData) Apply(m Movie) Movie {
	out := m.Clone()
	out.Title = d.Title
	out.Overview = d.Overview
	out.PosterPath = d.PosterPath
	out.ReleaseDate = d.ReleaseDate
	return out
}

// CatalogState is a point-in-time copy of the movie store.
type CatalogState struct {
	Movies         []Movie `json:"movies"`
	FilteredMovies []Movie `json:"filtered_movies"`
	Loading        bool    `json:"loading"`
	Error          string  `json:"error,omitempty"`
	SearchQuery    string  `json:"search_query"`
	CurrentPage    int     `json:"current_page"`
	TotalPages     int     `json:"total_pages"`
	TotalResults   int     `json:"total_results"`
}

const (
	TMDBImageBaseW500 = "https://image.tmdb.org/t/p/w500"
	DefaultTMDBBase   = "https://api.themoviedb.org/3"
)
