package course

import "testing"

func TestPublishable(t *testing.T) {
	cat := "11111111-1111-1111-1111-111111111111"
	full := Course{
		Title:       "Practical Go",
		Description: "Build real services",
		ImageURL:    "https://img.example.com/go.png",
		CategoryID:  &cat,
	}

	if !Publishable(full, true) {
		t.Fatal("complete course reported as not publishable")
	}

	if Publishable(full, false) {
		t.Fatal("course without a published chapter reported as publishable")
	}

	tests := []struct {
		name   string
		mutate func(*Course)
	}{
		{"missing title", func(c *Course) { c.Title = "" }},
		{"missing description", func(c *Course) { c.Description = "" }},
		{"missing image", func(c *Course) { c.ImageURL = "" }},
		{"missing category", func(c *Course) { c.CategoryID = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := full
			tt.mutate(&c)
			if Publishable(c, true) {
				t.Fatal("incomplete course reported as publishable")
			}
		})
	}
}
