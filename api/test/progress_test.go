package test

import (
	"net/http"
	"testing"
)

func TestProgress(t *testing.T) {
	env, err := NewTestEnv(t, "progress_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, "Testing In Go")

	// No published chapters yet: the percentage is not applicable.
	var pct *float64
	if status := env.request(t, http.MethodGet, "/progress/"+c.ID, env.UserToken, nil, &pct); status != http.StatusOK {
		t.Fatalf("fetching progress: got status %d, want %d", status, http.StatusOK)
	}
	if pct != nil {
		t.Fatalf("progress of a course without published chapters: got %v, want null", *pct)
	}

	published := ct.publishableChapterOK(t, c.ID, "Table Tests")
	draft := ct.createChapterOK(t, c.ID, "Fuzzing")

	complete := func(chapterID string, completed bool) {
		t.Helper()
		path := "/progress/courses/" + c.ID + "/chapters/" + chapterID + "/progress"
		body := map[string]any{"is_completed": completed}
		if status := env.request(t, http.MethodPut, path, env.UserToken, body, nil); status != http.StatusOK {
			t.Fatalf("recording progress: got status %d, want %d", status, http.StatusOK)
		}
	}

	fetch := func() *float64 {
		t.Helper()
		var pct *float64
		if status := env.request(t, http.MethodGet, "/progress/"+c.ID, env.UserToken, nil, &pct); status != http.StatusOK {
			t.Fatalf("fetching progress: got status %d, want %d", status, http.StatusOK)
		}
		return pct
	}

	complete(published.ID, true)

	// The unpublished chapter does not count: 1 of 1 published is done.
	if pct := fetch(); pct == nil || *pct != 100.0 {
		t.Fatalf("progress with the published chapter completed: got %v, want 100.0", pct)
	}

	// Completing a draft chapter changes nothing.
	complete(draft.ID, true)
	if pct := fetch(); pct == nil || *pct != 100.0 {
		t.Fatalf("progress after completing a draft chapter: got %v, want 100.0", pct)
	}

	// The upsert is idempotent and reversible.
	complete(published.ID, false)
	if pct := fetch(); pct == nil || *pct != 0.0 {
		t.Fatalf("progress after unmarking the chapter: got %v, want 0.0", pct)
	}

	path := "/progress/courses/" + c.ID + "/chapters/" + published.ID + "/progress"
	if status := env.request(t, http.MethodPut, path, env.UserToken, map[string]any{}, nil); status != http.StatusUnprocessableEntity {
		t.Fatalf("recording progress without is_completed: got status %d, want %d", status, http.StatusUnprocessableEntity)
	}
}

func TestChapterProgressView(t *testing.T) {
	env, err := NewTestEnv(t, "player_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, "Go Modules")

	// No published chapters yet: nothing to play.
	if status := env.request(t, http.MethodGet, "/courses/"+c.ID+"/chapter-progress", env.UserToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("player view without published chapters: got status %d, want %d", status, http.StatusNotFound)
	}

	published := ct.publishableChapterOK(t, c.ID, "Semantic Versions")
	ct.createChapterOK(t, c.ID, "Workspaces")

	body := map[string]any{"is_completed": true}
	path := "/progress/courses/" + c.ID + "/chapters/" + published.ID + "/progress"
	if status := env.request(t, http.MethodPut, path, env.UserToken, body, nil); status != http.StatusOK {
		t.Fatalf("recording progress: got status %d, want %d", status, http.StatusOK)
	}

	var out struct {
		ID       string `json:"id"`
		Chapters []struct {
			Title        string `json:"title"`
			UserProgress *struct {
				Completed bool `json:"is_completed"`
			} `json:"user_progress"`
		} `json:"chapters"`
	}
	if status := env.request(t, http.MethodGet, "/courses/"+c.ID+"/chapter-progress", env.UserToken, nil, &out); status != http.StatusOK {
		t.Fatalf("fetching player view: got status %d, want %d", status, http.StatusOK)
	}

	if out.ID != c.ID {
		t.Fatalf("player view course = %q, want %q", out.ID, c.ID)
	}

	// The draft chapter is not part of the playback list.
	if len(out.Chapters) != 1 || out.Chapters[0].Title != "Semantic Versions" {
		t.Fatalf("player view chapters mismatch: %+v", out.Chapters)
	}

	up := out.Chapters[0].UserProgress
	if up == nil || !up.Completed {
		t.Fatalf("player view progress mismatch: %+v", up)
	}
}
