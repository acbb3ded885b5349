package editor

import (
	"fmt"
	"strings"
	"time"
)

// Form is the controlled-input state for creating or editing a post. Each
// setter writes exactly one field of the scratch copy, producing a new
// whole-record value. Submit hands the full record to the caller's save
// function; Cancel invokes the caller's cancel function verbatim.
type Form struct {
	initial  BlogPost
	scratch  BlogPost
	onSubmit func(BlogPost) error
	onCancel func()
}

// New creates a Form editing initial. onSubmit receives the full scratch
// record on submit; onCancel is invoked on cancel. Either may be nil.
func New(initial BlogPost, onSubmit func(BlogPost) error, onCancel func()) *Form {
	return &Form{
		initial:  initial,
		scratch:  initial,
		onSubmit: onSubmit,
		onCancel: onCancel,
	}
}

// Reset re-initializes the scratch copy to initial, discarding any unsaved
// edits. Called whenever the record being edited changes identity, so one
// form instance serves both "new" and "edit" flows.
func (f *Form) Reset(initial BlogPost) {
	f.initial = initial
	f.scratch = initial
}

// Post returns the current scratch record.
func (f *Form) Post() BlogPost {
	return f.scratch
}

func (f *Form) SetTitle(v string) {
	next := f.scratch
	next.Title = v
	f.scratch = next
}

// SetCategory writes the category field. Values outside the closed category
// set are rejected; the empty string clears it.
func (f *Form) SetCategory(v string) error {
	if !ValidCategory(v) {
		return fmt.Errorf("unknown category %q", v)
	}
	next := f.scratch
	next.Category = v
	f.scratch = next
	return nil
}

func (f *Form) SetExcerpt(v string) {
	next := f.scratch
	next.Excerpt = v
	f.scratch = next
}

func (f *Form) SetContent(v string) {
	next := f.scratch
	next.Content = v
	f.scratch = next
}

func (f *Form) SetAuthor(v string) {
	next := f.scratch
	next.Author = v
	f.scratch = next
}

func (f *Form) SetDate(v string) {
	next := f.scratch
	next.Date = v
	f.scratch = next
}

func (f *Form) SetImage(v string) {
	next := f.scratch
	next.Image = v
	f.scratch = next
}

// SubmitLabel returns the submit button label. Identity presence, not a
// separate mode flag, determines create vs update.
func (f *Form) SubmitLabel() string {
	if f.scratch.ID == "" {
		return "Publish Post"
	}
	return "Update Post"
}

// Submit validates required-field presence and invokes the caller's save
// function with the full scratch record. Category is optional; everything
// else must be non-empty and the date must be a valid YYYY-MM-DD.
func (f *Form) Submit() error {
	if err := f.validate(); err != nil {
		return err
	}
	if f.onSubmit == nil {
		return nil
	}
	return f.onSubmit(f.scratch)
}

// Cancel invokes the caller's cancel function. The form has no opinion on
// its effect.
func (f *Form) Cancel() {
	if f.onCancel != nil {
		f.onCancel()
	}
}

func (f *Form) validate() error {
	required := []struct {
		name, value string
	}{
		{"title", f.scratch.Title},
		{"author", f.scratch.Author},
		{"date", f.scratch.Date},
		{"excerpt", f.scratch.Excerpt},
		{"content", f.scratch.Content},
		{"image", f.scratch.Image},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}
	if _, err := time.Parse("2006-01-02", f.scratch.Date); err != nil {
		return fmt.Errorf("invalid date %q: use YYYY-MM-DD", f.scratch.Date)
	}
	if !ValidCategory(f.scratch.Category) {
		return fmt.Errorf("unknown category %q", f.scratch.Category)
	}
	return nil
}
