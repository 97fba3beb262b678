package test

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/course-platform/core/category"
	"github.com/irsalhamdi/course-platform/core/chapter"
	"github.com/irsalhamdi/course-platform/core/course"
)

type courseTest struct {
	*TestEnv
}

func (ct *courseTest) createCategoryOK(t *testing.T, name string) category.Category {
	t.Helper()

	var cat category.Category
	body := map[string]string{"name": name}
	if status := ct.request(t, http.MethodPost, "/categories", ct.UserToken, body, &cat); status != http.StatusCreated {
		t.Fatalf("creating category: got status %d, want %d", status, http.StatusCreated)
	}
	return cat
}

func (ct *courseTest) createCourseOK(t *testing.T, title string) course.Course {
	t.Helper()

	var c course.Course
	body := map[string]any{"title": title}
	if status := ct.request(t, http.MethodPost, "/courses", ct.UserToken, body, &c); status != http.StatusCreated {
		t.Fatalf("creating course: got status %d, want %d", status, http.StatusCreated)
	}
	return c
}

func (ct *courseTest) fillCourseOK(t *testing.T, id string, categoryID string) {
	t.Helper()

	body := map[string]any{
		"description": "a complete course",
		"imageUrl":    "https://img.example.com/cover.png",
		"price":       29.99,
		"categoryId":  categoryID,
	}
	if status := ct.request(t, http.MethodPatch, "/courses/"+id, ct.UserToken, body, nil); status != http.StatusOK {
		t.Fatalf("updating course: got status %d, want %d", status, http.StatusOK)
	}
}

func (ct *courseTest) getCourseOK(t *testing.T, id string) course.Course {
	t.Helper()

	var c course.Course
	if status := ct.request(t, http.MethodGet, "/courses/"+id, ct.UserToken, nil, &c); status != http.StatusOK {
		t.Fatalf("fetching course: got status %d, want %d", status, http.StatusOK)
	}
	return c
}

func (ct *courseTest) createChapterOK(t *testing.T, courseID string, title string) chapter.Chapter {
	t.Helper()

	var ch chapter.Chapter
	body := map[string]any{"title": title}
	if status := ct.request(t, http.MethodPost, "/courses/"+courseID+"/chapters", ct.UserToken, body, &ch); status != http.StatusCreated {
		t.Fatalf("creating chapter: got status %d, want %d", status, http.StatusCreated)
	}
	return ch
}

func (ct *courseTest) fillChapterOK(t *testing.T, courseID string, chapterID string) {
	t.Helper()

	body := map[string]any{
		"description": "a complete chapter",
		"videoUrl":    "https://videos.example.com/lesson.mp4",
	}
	path := "/courses/" + courseID + "/chapters/" + chapterID
	if status := ct.request(t, http.MethodPatch, path, ct.UserToken, body, nil); status != http.StatusOK {
		t.Fatalf("updating chapter: got status %d, want %d", status, http.StatusOK)
	}
}

func (ct *courseTest) publishChapter(t *testing.T, courseID string, chapterID string, action string) int {
	t.Helper()
	path := "/courses/" + courseID + "/chapters/" + chapterID + "/publish?action=" + action
	return ct.request(t, http.MethodPatch, path, ct.UserToken, nil, nil)
}

func (ct *courseTest) publishCourse(t *testing.T, id string, action string) int {
	t.Helper()
	return ct.request(t, http.MethodPatch, "/courses/"+id+"/publish?action="+action, ct.UserToken, nil, nil)
}

// publishableChapterOK creates a chapter that satisfies every publish
// precondition and publishes it.
func (ct *courseTest) publishableChapterOK(t *testing.T, courseID string, title string) chapter.Chapter {
	t.Helper()

	ch := ct.createChapterOK(t, courseID, title)
	ct.fillChapterOK(t, courseID, ch.ID)
	if status := ct.publishChapter(t, courseID, ch.ID, "publish"); status != http.StatusOK {
		t.Fatalf("publishing chapter: got status %d, want %d", status, http.StatusOK)
	}
	return ch
}

func TestPublishStateMachine(t *testing.T) {
	env, err := NewTestEnv(t, "publish_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &courseTest{env}

	cat := ct.createCategoryOK(t, "programming")
	c := ct.createCourseOK(t, "Practical Go")

	// Bare course: no storefront fields, no published chapter.
	if status := ct.publishCourse(t, c.ID, "publish"); status != http.StatusBadRequest {
		t.Fatalf("publishing a bare course: got status %d, want %d", status, http.StatusBadRequest)
	}

	ch := ct.createChapterOK(t, c.ID, "Introduction")

	// Chapter without description and video cannot be published.
	if status := ct.publishChapter(t, c.ID, ch.ID, "publish"); status != http.StatusBadRequest {
		t.Fatalf("publishing an incomplete chapter: got status %d, want %d", status, http.StatusBadRequest)
	}

	ct.fillChapterOK(t, c.ID, ch.ID)
	if status := ct.publishChapter(t, c.ID, ch.ID, "publish"); status != http.StatusOK {
		t.Fatalf("publishing a complete chapter: got status %d, want %d", status, http.StatusOK)
	}

	// Storefront fields still missing.
	if status := ct.publishCourse(t, c.ID, "publish"); status != http.StatusBadRequest {
		t.Fatalf("publishing a course without storefront fields: got status %d, want %d", status, http.StatusBadRequest)
	}

	ct.fillCourseOK(t, c.ID, cat.ID)
	if status := ct.publishCourse(t, c.ID, "publish"); status != http.StatusOK {
		t.Fatalf("publishing a complete course: got status %d, want %d", status, http.StatusOK)
	}

	if status := ct.request(t, http.MethodGet, "/courses/public-course/"+c.ID, "", nil, nil); status != http.StatusOK {
		t.Fatalf("fetching a published course publicly: got status %d, want %d", status, http.StatusOK)
	}

	// Unpublishing the only published chapter cascades to the course.
	if status := ct.publishChapter(t, c.ID, ch.ID, "unpublish"); status != http.StatusOK {
		t.Fatalf("unpublishing the chapter: got status %d, want %d", status, http.StatusOK)
	}

	if got := ct.getCourseOK(t, c.ID); got.Published {
		t.Fatal("course is still published after its last published chapter was unpublished")
	}

	if status := ct.request(t, http.MethodGet, "/courses/public-course/"+c.ID, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("fetching an unpublished course publicly: got status %d, want %d", status, http.StatusNotFound)
	}
}

func TestChapterDeleteCascade(t *testing.T) {
	env, err := NewTestEnv(t, "cascade_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &courseTest{env}

	cat := ct.createCategoryOK(t, "databases")
	c := ct.createCourseOK(t, "Postgres From Scratch")
	ct.fillCourseOK(t, c.ID, cat.ID)
	ch := ct.publishableChapterOK(t, c.ID, "Schemas")

	if status := ct.publishCourse(t, c.ID, "publish"); status != http.StatusOK {
		t.Fatalf("publishing course: got status %d, want %d", status, http.StatusOK)
	}

	path := "/courses/" + c.ID + "/chapters/" + ch.ID
	if status := ct.request(t, http.MethodDelete, path, ct.UserToken, nil, nil); status != http.StatusOK {
		t.Fatalf("deleting chapter: got status %d, want %d", status, http.StatusOK)
	}

	if got := ct.getCourseOK(t, c.ID); got.Published {
		t.Fatal("course is still published after its last published chapter was deleted")
	}
}

func TestChapterReorder(t *testing.T) {
	env, err := NewTestEnv(t, "reorder_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, "Go Concurrency")
	first := ct.createChapterOK(t, c.ID, "Goroutines")
	second := ct.createChapterOK(t, c.ID, "Channels")

	body := []map[string]any{
		{"id": first.ID, "position": 1},
		{"id": second.ID, "position": 0},
	}
	path := "/courses/" + c.ID + "/chapters/reorder"
	if status := ct.request(t, http.MethodPut, path, ct.UserToken, body, nil); status != http.StatusOK {
		t.Fatalf("reordering chapters: got status %d, want %d", status, http.StatusOK)
	}

	var chs []chapter.Chapter
	if status := ct.request(t, http.MethodGet, "/courses/"+c.ID+"/chapters", ct.UserToken, nil, &chs); status != http.StatusOK {
		t.Fatalf("listing chapters: got status %d, want %d", status, http.StatusOK)
	}

	var got []string
	for _, ch := range chs {
		got = append(got, ch.Title)
	}
	want := []string{"Channels", "Goroutines"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chapter order mismatch (-want +got):\n%s", diff)
	}
}

func TestCourseOwnership(t *testing.T) {
	env, err := NewTestEnv(t, "ownership_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, "Private Course")

	reg := map[string]string{"email": "other@example.com", "username": "other", "password": "another-long-pass"}
	if status := env.request(t, http.MethodPost, "/auth/register", "", reg, nil); status != http.StatusCreated {
		t.Fatalf("registering second user: got status %d", status)
	}
	confirm := env.Mail.ActivationToken("other@example.com")
	var tk tokenOut
	if status := env.request(t, http.MethodPost, "/auth/active-email", "", map[string]string{"token": confirm}, &tk); status != http.StatusOK {
		t.Fatalf("activating second user: got status %d", status)
	}

	if status := env.request(t, http.MethodGet, "/courses/"+c.ID, tk.AccessToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("fetching someone else's course: got status %d, want %d", status, http.StatusForbidden)
	}

	body := map[string]any{"title": "Hijacked"}
	if status := env.request(t, http.MethodPatch, "/courses/"+c.ID, tk.AccessToken, body, nil); status != http.StatusForbidden {
		t.Fatalf("updating someone else's course: got status %d, want %d", status, http.StatusForbidden)
	}
}
