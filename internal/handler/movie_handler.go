package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-manager/internal/form"
	"movie-manager/internal/models"
	"movie-manager/internal/search"
	"movie-manager/internal/service"
	"movie-manager/internal/view"
)

// MovieHandler handles HTTP requests for the movie catalog session.
type MovieHandler struct {
	svc      *service.MovieService
	search   *search.Controller
	form     *form.Controller
	views    *view.Builder
	renderer *view.Renderer
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(svc *service.MovieService, sc *search.Controller, fc *form.Controller, views *view.Builder, renderer *view.Renderer) *MovieHandler {
	return &MovieHandler{
		svc:      svc,
		search:   sc,
		form:     fc,
		views:    views,
		renderer: renderer,
	}
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationResponse reports rejected form fields.
type ValidationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// SearchInput is the body of a search keystroke.
type SearchInput struct {
	Query string `json:"query" form:"query"`
}

// NewApp creates the Fiber app serving the catalog. Handlers keep request
// values in session state, so the app copies them out of fasthttp's buffers.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "Movie Manager",
		ServerHeader: "Movie-Manager",
		Immutable:    true,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
		},
	})
}

// Mount registers the API under /api/v1 and the catalog page at /. A non-nil
// guard runs before both.
func (h *MovieHandler) Mount(app *fiber.App, guard fiber.Handler) {
	api := app.Group("/api/v1")
	if guard != nil {
		api.Use(guard)
		app.Get("/", guard, h.Index)
	} else {
		app.Get("/", h.Index)
	}
	h.Routes(api)
}

// Routes registers the API routes on r.
func (h *MovieHandler) Routes(r fiber.Router) {
	r.Get("/health", h.Health)
	r.Get("/state", h.State)
	r.Get("/movies", h.ListMovies)
	r.Get("/movies/search", h.SearchMovies)
	r.Post("/movies/popular", h.LoadPopular)
	r.Get("/movies/:id", h.GetMovieDetail)
	r.Put("/search", h.InputSearch)
	r.Delete("/search", h.ClearSearch)
	r.Delete("/error", h.ClearError)
	r.Get("/form", h.GetForm)
	r.Put("/form", h.SetForm)
	r.Post("/form", h.SubmitForm)
	r.Post("/form/edit/:id", h.EditMovie)
	r.Delete("/form/edit", h.CancelEdit)
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MovieHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "movie-manager",
	})
}

// State returns the catalog state.
// @Summary Catalog state
// @Tags catalog
// @Produce json
// @Success 200 {object} models.CatalogState
// @Router /state [get]
func (h *MovieHandler) State(c fiber.Ctx) error {
	return c.JSON(h.svc.State())
}

// ListMovies returns the cards currently on display.
// @Summary List displayed movies
// @Tags movies
// @Produce json
// @Success 200 {object} view.Page
// @Router /movies [get]
func (h *MovieHandler) ListMovies(c fiber.Ctx) error {
	return c.JSON(h.page(c))
}

// LoadPopular fetches a page of popular movies into the catalog.
// @Summary Load popular movies
// @Tags movies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.CatalogState
// @Router /movies/popular [post]
func (h *MovieHandler) LoadPopular(c fiber.Ctx) error {
	page := fiber.Query(c, "page", 1)
	if err := h.svc.LoadPopular(c.Context(), page); err != nil {
		slog.Warn("load popular failed", "page", page, "error", err)
	}
	return c.JSON(h.svc.State())
}

// SearchMovies runs a title search right away, for paging through results.
// @Summary Search movies
// @Tags movies
// @Produce json
// @Param query query string false "Title text, defaults to the current search text"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} models.CatalogState
// @Router /movies/search [get]
func (h *MovieHandler) SearchMovies(c fiber.Ctx) error {
	query := c.Query("query", h.svc.SearchText())
	page := fiber.Query(c, "page", 1)

	h.svc.SetSearchText(query)
	if err := h.svc.Search(c.Context(), query, page); err != nil {
		slog.Warn("search failed", "query", query, "page", page, "error", err)
	}
	return c.JSON(h.svc.State())
}

// GetMovieDetail returns a single movie from the session or TMDB.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.Movie
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) GetMovieDetail(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid movie ID",
		})
	}

	m, err := h.svc.MovieDetail(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error: "movie not found",
			})
		}
		slog.Error("failed to get movie detail", "id", id, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error: "failed to retrieve movie details",
		})
	}

	return c.JSON(m)
}

// InputSearch feeds a keystroke to the debounced search.
// @Summary Update search text
// @Tags search
// @Accept json
// @Produce json
// @Param body body SearchInput true "Search text"
// @Success 202 {object} map[string]interface{}
// @Router /search [put]
func (h *MovieHandler) InputSearch(c fiber.Ctx) error {
	var in SearchInput
	if err := c.Bind().Body(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid search body",
		})
	}

	h.search.Input(in.Query)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"query":   h.search.Query(),
		"pending": h.search.Pending(),
	})
}

// ClearSearch empties the search and reloads popular movies.
// @Summary Clear search
// @Tags search
// @Produce json
// @Success 200 {object} models.CatalogState
// @Router /search [delete]
func (h *MovieHandler) ClearSearch(c fiber.Ctx) error {
	if err := h.search.Clear(c.Context()); err != nil {
		slog.Warn("clear search reload failed", "error", err)
	}
	return c.JSON(h.svc.State())
}

// ClearError dismisses the current error message.
// @Summary Clear error
// @Tags catalog
// @Success 204
// @Router /error [delete]
func (h *MovieHandler) ClearError(c fiber.Ctx) error {
	h.svc.ClearError()
	return c.SendStatus(fiber.StatusNoContent)
}

// GetForm returns the form state.
// @Summary Form state
// @Tags form
// @Produce json
// @Success 200 {object} form.State
// @Router /form [get]
func (h *MovieHandler) GetForm(c fiber.Ctx) error {
	return c.JSON(h.form.State())
}

// SetForm replaces the working form fields.
// @Summary Update form fields
// @Tags form
// @Accept json
// @Produce json
// @Param body body models.MovieFormData true "Fields"
// @Success 200 {object} form.State
// @Router /form [put]
func (h *MovieHandler) SetForm(c fiber.Ctx) error {
	var data models.MovieFormData
	if err := c.Bind().Body(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid form body",
		})
	}
	h.form.SetFields(data)
	return c.JSON(h.form.State())
}

// SubmitForm saves the form as a new movie or as an edit.
// @Summary Submit form
// @Tags form
// @Accept json
// @Produce json
// @Param body body models.MovieFormData false "Fields, replacing the working fields when given"
// @Success 200 {object} models.Movie
// @Success 201 {object} models.Movie
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ValidationResponse
// @Router /form [post]
func (h *MovieHandler) SubmitForm(c fiber.Ctx) error {
	if len(c.Body()) > 0 {
		var data models.MovieFormData
		if err := c.Bind().Body(&data); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "invalid form body",
			})
		}
		h.form.SetFields(data)
	}

	m, mode, err := h.form.Submit(c.Context())
	if fromBrowser(c) {
		return c.Redirect().Status(fiber.StatusSeeOther).To("/")
	}

	var verr *form.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationResponse{
			Error:  "invalid movie",
			Fields: verr.Fields,
		})
	case errors.Is(err, form.ErrSubmitInProgress):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to save movie",
		})
	}

	if mode == form.ModeEdit {
		return c.JSON(m)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// EditMovie designates a movie for editing.
// @Summary Edit movie
// @Tags form
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} form.State
// @Failure 404 {object} ErrorResponse
// @Router /form/edit/{id} [post]
func (h *MovieHandler) EditMovie(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid movie ID",
		})
	}

	m, ok := h.svc.FindMovie(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "movie not found",
		})
	}

	h.form.Edit(m)
	if fromBrowser(c) {
		return c.Redirect().Status(fiber.StatusSeeOther).To("/")
	}
	return c.JSON(h.form.State())
}

// CancelEdit returns the form to create mode.
// @Summary Cancel edit
// @Tags form
// @Produce json
// @Success 200 {object} form.State
// @Router /form/edit [delete]
func (h *MovieHandler) CancelEdit(c fiber.Ctx) error {
	h.form.Cancel()
	return c.JSON(h.form.State())
}

// Index renders the catalog page. A query parameter runs the search first.
func (h *MovieHandler) Index(c fiber.Ctx) error {
	if q, ok := queryParam(c, "query"); ok && q != h.svc.SearchText() {
		var err error
		if strings.TrimSpace(q) == "" {
			err = h.search.Clear(c.Context())
		} else {
			h.svc.SetSearchText(q)
			err = h.svc.Search(c.Context(), q, 1)
		}
		if err != nil {
			slog.Warn("page search failed", "query", q, "error", err)
		}
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, h.page(c)); err != nil {
		return err
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}

func (h *MovieHandler) page(c fiber.Ctx) view.Page {
	return h.views.Page(h.svc.State(), h.form.State(), h.svc.GenreNames(c.Context()))
}

func fromBrowser(c fiber.Ctx) bool {
	ct := c.Get(fiber.HeaderContentType)
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

func queryParam(c fiber.Ctx, key string) (string, bool) {
	args := c.RequestCtx().QueryArgs()
	if !args.Has(key) {
		return "", false
	}
	return string(args.Peek(key)), true
}
