package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePost() BlogPost {
	return BlogPost{
		ID:       "9b2f4c1e-0000-4000-8000-000000000001",
		Title:    "Shipping the redesign",
		Category: "Design",
		Excerpt:  "What changed and why",
		Content:  "Long-form body",
		Author:   "Jo March",
		Date:     "2026-08-01",
		Image:    "/public/uploads/redesign.jpg",
	}
}

func TestSingleFieldEditSubmitsWholeRecord(t *testing.T) {
	initial := samplePost()
	var got BlogPost
	form := New(initial, func(p BlogPost) error {
		got = p
		return nil
	}, nil)

	form.SetTitle("Shipping the redesign, part two")
	require.NoError(t, form.Submit())

	want := initial
	want.Title = "Shipping the redesign, part two"
	assert.Equal(t, want, got, "payload must equal the original record except the edited field")
}

func TestEachSetterTouchesOneField(t *testing.T) {
	initial := samplePost()
	form := New(initial, nil, nil)

	form.SetExcerpt("New excerpt")
	got := form.Post()
	want := initial
	want.Excerpt = "New excerpt"
	assert.Equal(t, want, got)

	form.SetAuthor("Amy March")
	got = form.Post()
	want.Author = "Amy March"
	assert.Equal(t, want, got)
}

func TestResetDiscardsUnsavedEdits(t *testing.T) {
	first := samplePost()
	form := New(first, nil, nil)
	form.SetTitle("Edited but never saved")
	form.SetContent("Scratch content")

	second := samplePost()
	second.ID = "9b2f4c1e-0000-4000-8000-000000000002"
	second.Title = "A different post"
	form.Reset(second)

	assert.Equal(t, second, form.Post(), "reset must discard in-progress edits wholesale")
}

func TestSubmitLabel(t *testing.T) {
	form := New(BlogPost{}, nil, nil)
	assert.Equal(t, "Publish Post", form.SubmitLabel())

	form.Reset(samplePost())
	assert.Equal(t, "Update Post", form.SubmitLabel())
}

func TestSubmitRequiresFields(t *testing.T) {
	clear := map[string]func(*Form){
		"title":   func(f *Form) { f.SetTitle("") },
		"author":  func(f *Form) { f.SetAuthor("") },
		"date":    func(f *Form) { f.SetDate("") },
		"excerpt": func(f *Form) { f.SetExcerpt("") },
		"content": func(f *Form) { f.SetContent("") },
		"image":   func(f *Form) { f.SetImage("") },
	}
	for name, blank := range clear {
		t.Run(name, func(t *testing.T) {
			called := false
			form := New(samplePost(), func(BlogPost) error {
				called = true
				return nil
			}, nil)
			blank(form)

			err := form.Submit()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
			assert.False(t, called, "onSubmit must not run when validation fails")
		})
	}
}

func TestCategoryIsOptional(t *testing.T) {
	form := New(samplePost(), func(BlogPost) error { return nil }, nil)
	require.NoError(t, form.SetCategory(""))
	assert.NoError(t, form.Submit())
}

func TestSetCategoryRejectsUnknown(t *testing.T) {
	form := New(samplePost(), nil, nil)
	err := form.SetCategory("Poetry")
	require.Error(t, err)
	assert.Equal(t, "Design", form.Post().Category, "rejected writes must not touch the scratch copy")

	for _, c := range Categories {
		assert.NoError(t, form.SetCategory(c))
	}
}

func TestSubmitRejectsMalformedDate(t *testing.T) {
	form := New(samplePost(), nil, nil)
	form.SetDate("08/01/2026")
	assert.Error(t, form.Submit())
}

func TestSubmitPropagatesSaveError(t *testing.T) {
	boom := errors.New("disk full")
	form := New(samplePost(), func(BlogPost) error { return boom }, nil)
	assert.ErrorIs(t, form.Submit(), boom)
}

func TestCancelInvokesCallback(t *testing.T) {
	called := false
	form := New(samplePost(), nil, func() { called = true })
	form.Cancel()
	assert.True(t, called)
}
