package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"movie-manager/internal/models"
)

// Client is the TMDB API client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new TMDB API client.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = models.DefaultTMDBBase
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// RequestError reports a non-success status from TMDB.
type RequestError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: TMDB API returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

type genreListResponse struct {
	Genres []models.Genre `json:"genres"`
}

// PopularMovies fetches one page of the popular movies listing.
func (c *Client) PopularMovies(ctx context.Context, page int) (*models.PagedResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(normalizePage(page)))

	slog.Debug("fetching TMDB popular", "page", page)
	var result models.PagedResult
	if err := c.get(ctx, "popular movies", "/movie/popular", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchMovies fetches one page of title search results.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*models.PagedResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(normalizePage(page)))

	slog.Debug("fetching TMDB search", "query", query, "page", page)
	var result models.PagedResult
	if err := c.get(ctx, "search movies", "/search/movie", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MovieDetail fetches a single movie by TMDB id.
func (c *Client) MovieDetail(ctx context.Context, id int) (*models.Movie, error) {
	slog.Debug("fetching TMDB movie detail", "tmdb_id", id)
	var result models.Movie
	if err := c.get(ctx, "movie detail", fmt.Sprintf("/movie/%d", id), url.Values{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Genres fetches all movie genres from TMDB.
func (c *Client) Genres(ctx context.Context) ([]models.Genre, error) {
	slog.Debug("fetching TMDB genres")
	var result genreListResponse
	if err := c.get(ctx, "genres", "/genre/movie/list", url.Values{}, &result); err != nil {
		return nil, err
	}
	return result.Genres, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	q.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: HTTP request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
