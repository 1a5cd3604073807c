// Package form drives the add/edit movie form.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"

	"movie-manager/internal/models"
)

// ErrSubmitInProgress is returned while an earlier submission has not finished.
var ErrSubmitInProgress = errors.New("a submission is already in progress")

// ValidationError lists the fields that failed validation, keyed by JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	sort.Strings(parts)
	return "invalid movie: " + strings.Join(parts, "; ")
}

// Mode is the form's current purpose.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Store is the part of the movie store the form submits to.
type Store interface {
	AddLocal(ctx context.Context, data models.MovieFormData) (models.Movie, error)
	UpdateLocal(ctx context.Context, m models.Movie) (models.Movie, error)
}

// State is a snapshot of the form.
type State struct {
	Mode       Mode                 `json:"mode"`
	EditingID  int                  `json:"editing_id,omitempty"`
	Fields     models.MovieFormData `json:"fields"`
	Submitting bool                 `json:"submitting"`
}

// Controller holds the working fields of the movie form.
type Controller struct {
	store    Store
	validate *validator.Validate

	mu         sync.Mutex
	editing    *models.Movie
	fields     models.MovieFormData
	submitting bool
}

// NewController creates a form Controller in create mode.
func NewController(store Store) *Controller {
	return &Controller{
		store:    store,
		validate: NewValidator(),
	}
}

// NewValidator returns a validator that knows the movie form rules and
// reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("poster", validPoster)
	return v
}

// validPoster accepts an absolute http(s) URL or a TMDB path fragment.
func validPoster(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.HasPrefix(s, "/") {
		return !strings.ContainsAny(s, " \t\n")
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Edit switches to edit mode for m and loads its fields.
func (c *Controller) Edit(m models.Movie) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m = m.Clone()
	c.editing = &m
	c.fields = models.FormDataOf(m)
}

// Cancel leaves edit mode and blanks the fields.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.editing = nil
	c.fields = models.MovieFormData{}
}

// SetFields replaces the working fields.
func (c *Controller) SetFields(data models.MovieFormData) {
	c.mu.Lock()
	c.fields = data.Clone()
	c.mu.Unlock()
}

// State returns a snapshot of the form.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{Mode: ModeCreate, Fields: c.fields, Submitting: c.submitting}
	if c.editing != nil {
		st.Mode = ModeEdit
		st.EditingID = c.editing.ID
	}
	return st
}

// Submit validates the working fields and saves them: a new movie in create
// mode, or the designated movie in edit mode. The returned Mode is the one the
// save ran in. On success the form returns to a blank create mode; on failure
// the fields are kept for a retry.
func (c *Controller) Submit(ctx context.Context) (models.Movie, Mode, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return models.Movie{}, "", ErrSubmitInProgress
	}
	fields := c.fields
	var editing *models.Movie
	if c.editing != nil {
		e := c.editing.Clone()
		editing = &e
	}
	mode := ModeCreate
	if editing != nil {
		mode = ModeEdit
	}

	if err := c.check(fields); err != nil {
		c.mu.Unlock()
		return models.Movie{}, mode, err
	}
	c.submitting = true
	c.mu.Unlock()

	id := uuid.NewString()
	log := slog.With("submission_id", id)

	var (
		saved models.Movie
		err   error
	)
	if editing != nil {
		log.Debug("updating movie", "id", editing.ID)
		saved, err = c.store.UpdateLocal(ctx, fields.Apply(*editing))
	} else {
		log.Debug("adding movie", "title", fields.Title)
		saved, err = c.store.AddLocal(ctx, fields)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		log.Error("failed to save movie", "error", err)
		return models.Movie{}, mode, fmt.Errorf("save movie: %w", err)
	}

	if editing != nil && c.editing != nil && c.editing.ID == editing.ID {
		c.editing = nil
	}
	c.fields = models.MovieFormData{}
	log.Info("movie saved", "id", saved.ID, "mode", mode)
	return saved, mode, nil
}

func (c *Controller) check(fields models.MovieFormData) error {
	err := c.validate.Struct(fields)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate movie: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "poster":
		return "must be an http(s) URL or a path starting with /"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	default:
		return "is invalid"
	}
}
