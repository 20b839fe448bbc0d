package browse

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/movie-directory/internal/client"
	"github.com/Clark-Hu/movie-directory/internal/domain"
)

type Mode int

const (
	ModeView Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "view"
}

// Form field names, in display order.
const (
	FieldTitle      = "title"
	FieldYear       = "year"
	FieldGenre      = "genre"
	FieldDirectorID = "directorId"
)

var Fields = []string{FieldTitle, FieldYear, FieldGenre, FieldDirectorID}

const (
	msgCreated   = "Movie created successfully!"
	msgUpdated   = "Movie updated successfully!"
	msgSaved     = "Saved successfully!"
	msgSaveError = "Save error"
)

var fieldMessages = map[string]string{
	FieldTitle:      "Enter title",
	FieldYear:       "Invalid year",
	FieldGenre:      "Enter genre",
	FieldDirectorID: "Select director",
}

// FormValues are the raw inputs of the edit form.
type FormValues struct {
	Title      string
	Year       string
	Genre      string
	DirectorID string
}

func valuesFromMovie(m client.Movie) FormValues {
	return FormValues{
		Title:      m.Title,
		Year:       strconv.Itoa(m.Year),
		Genre:      m.Genre,
		DirectorID: m.Director.ID,
	}
}

type formInput struct {
	Title      string `validate:"required"`
	Year       int    `validate:"min=1888"`
	Genre      string `validate:"required"`
	DirectorID string `validate:"required"`
}

var formFieldNames = map[string]string{
	"Title":      FieldTitle,
	"Year":       FieldYear,
	"Genre":      FieldGenre,
	"DirectorID": FieldDirectorID,
}

// Outcome tells the caller what to do after a form transition.
type Outcome struct {
	// Leave is set when the form is done and the caller should navigate back.
	Leave bool
}

// EditForm is the detail view of one movie. New movies start in edit mode and
// leave on save or cancel; existing movies toggle between view and edit.
type EditForm struct {
	id       string
	mode     Mode
	values   FormValues
	original FormValues
	errors   map[string]string

	Notifier *Notifier
	mailbox  Mailbox
	validate *validator.Validate
	logger   *log.Logger
}

func newForm(notifier *Notifier, mb Mailbox, logger *log.Logger) *EditForm {
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EditForm{
		errors:   map[string]string{},
		Notifier: notifier,
		mailbox:  mb,
		validate: validator.New(),
		logger:   logger,
	}
}

// NewMovieForm returns an empty form in edit mode.
func NewMovieForm(notifier *Notifier, mb Mailbox, logger *log.Logger) *EditForm {
	f := newForm(notifier, mb, logger)
	f.mode = ModeEdit
	return f
}

// LoadMovieForm returns a read-only form for m.
func LoadMovieForm(m client.Movie, notifier *Notifier, mb Mailbox, logger *log.Logger) *EditForm {
	f := newForm(notifier, mb, logger)
	f.id = m.ID
	f.mode = ModeView
	f.values = valuesFromMovie(m)
	f.original = f.values
	return f
}

func (f *EditForm) ID() string                    { return f.id }
func (f *EditForm) IsNew() bool                   { return f.id == "" }
func (f *EditForm) Mode() Mode                    { return f.mode }
func (f *EditForm) Values() FormValues            { return f.values }
func (f *EditForm) Errors() map[string]string     { return f.errors }
func (f *EditForm) SetValues(v FormValues)        { f.values = v }
func (f *EditForm) FieldError(name string) string { return f.errors[name] }

// Edit switches an existing movie to edit mode.
func (f *EditForm) Edit() {
	f.mode = ModeEdit
}

// Set changes one field by name. It is a no-op outside edit mode.
func (f *EditForm) Set(field, value string) {
	if f.mode != ModeEdit {
		return
	}
	switch field {
	case FieldTitle:
		f.values.Title = value
	case FieldYear:
		f.values.Year = value
	case FieldGenre:
		f.values.Genre = value
	case FieldDirectorID:
		f.values.DirectorID = value
	}
}

// Validate checks every field and records all messages at once.
func (f *EditForm) Validate() (client.MovieInput, bool) {
	in := formInput{
		Title:      strings.TrimSpace(f.values.Title),
		Genre:      strings.TrimSpace(f.values.Genre),
		DirectorID: strings.TrimSpace(f.values.DirectorID),
	}
	yearOK := true
	if y, err := strconv.Atoi(strings.TrimSpace(f.values.Year)); err == nil {
		in.Year = y
	} else {
		yearOK = false
	}

	errs := map[string]string{}
	if err := f.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				name := formFieldNames[fe.Field()]
				errs[name] = fieldMessages[name]
			}
		}
	}
	if !yearOK || in.Year < domain.MinYear {
		errs[FieldYear] = fieldMessages[FieldYear]
	}
	f.errors = errs
	if len(errs) > 0 {
		return client.MovieInput{}, false
	}
	return client.MovieInput{Title: in.Title, Year: in.Year, Genre: in.Genre, DirectorID: in.DirectorID}, true
}

// ResolveSave applies the result of a create or update request.
func (f *EditForm) ResolveSave(saved client.Movie, err error) Outcome {
	if err != nil {
		f.logger.Error("save movie", "id", f.id, "err", err)
		f.Notifier.Error(msgSaveError)
		return Outcome{}
	}
	if f.IsNew() {
		f.post(msgCreated)
		return Outcome{Leave: true}
	}
	f.post(msgUpdated)
	f.Notifier.Success(msgSaved)
	f.values = valuesFromMovie(saved)
	f.original = f.values
	f.mode = ModeView
	return Outcome{}
}

// Save validates and, when valid, creates or updates through dir.
// Invalid input issues no request.
func (f *EditForm) Save(ctx context.Context, dir Directory) Outcome {
	in, ok := f.Validate()
	if !ok {
		return Outcome{}
	}
	var (
		saved client.Movie
		err   error
	)
	if f.IsNew() {
		saved, err = dir.Create(ctx, in)
	} else {
		saved, err = dir.Update(ctx, f.id, in)
	}
	return f.ResolveSave(saved, err)
}

// Cancel discards edits. Existing movies revert to the last loaded values;
// new movies leave.
func (f *EditForm) Cancel() Outcome {
	f.errors = map[string]string{}
	if f.IsNew() {
		return Outcome{Leave: true}
	}
	f.values = f.original
	f.mode = ModeView
	return Outcome{}
}

func (f *EditForm) post(msg string) {
	if f.mailbox != nil {
		f.mailbox.Post(msg)
	}
}
