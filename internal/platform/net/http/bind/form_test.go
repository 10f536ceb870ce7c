package bind

import (
	"testing"

	perr "formdata/internal/platform/errors"
)

type uploadForm struct {
	Title   string   `form:"title" json:"title" validate:"required,max=120"`
	Tags    []string `form:"tags" json:"tags" validate:"max=8,dive,slug"`
	Public  bool     `json:"public"`
	Version int      `json:"version" validate:"min=0"`
	Skip    string   `form:"-"`
}

func TestForm_BindsScalarsAndSlices(t *testing.T) {
	got, err := Form[uploadForm](map[string][]string{
		"title":   {"Quarterly report", "ignored"},
		"tags":    {"finance", "q3"},
		"public":  {"true"},
		"version": {"2"},
		"Skip":    {"nope"},
	})
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if got.Title != "Quarterly report" || !got.Public || got.Version != 2 {
		t.Fatalf("unexpected bind %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "q3" {
		t.Fatalf("tags=%v", got.Tags)
	}
	if got.Skip != "" {
		t.Fatalf("form:\"-\" field must stay empty")
	}
}

func TestForm_Errors(t *testing.T) {
	cases := []struct {
		name  string
		in    map[string][]string
		field string
	}{
		{"missing required", map[string][]string{}, "title"},
		{"bad slug", map[string][]string{"title": {"x"}, "tags": {"Bad Tag"}}, "tags[0]"},
		{"bad int", map[string][]string{"title": {"x"}, "version": {"two"}}, "version"},
		{"bad bool", map[string][]string{"title": {"x"}, "public": {"maybe"}}, "public"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Form[uploadForm](tc.in)
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("want validation code, got %v", err)
			}
			e, _ := perr.As(err)
			if e.Field() != tc.field {
				t.Fatalf("field=%q want %q", e.Field(), tc.field)
			}
		})
	}
}

func TestForm_NonStructTarget(t *testing.T) {
	if _, err := Form[string](nil); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}
