package media

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/irsalhamdi/course-platform/config"
)

func multipartBody(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cover.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("fake image bytes"))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.test/demo/cover.png",
		})
	}))
	defer srv.Close()

	up := New(config.Cloudinary{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	up.SetBaseURL(srv.URL)

	body, contentType := multipartBody(t)
	r := httptest.NewRequest(http.MethodPost, "/upload", body)
	r.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	if err := HandleUpload(up)(context.Background(), rec, r); err != nil {
		t.Fatalf("handling upload: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var url string
	if err := json.NewDecoder(rec.Body).Decode(&url); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if url != "https://res.cloudinary.test/demo/cover.png" {
		t.Fatalf("response URL = %q", url)
	}
}

func TestHandleUploadBadResourceType(t *testing.T) {
	up := New(config.Cloudinary{CloudName: "demo", APIKey: "key", APISecret: "secret"})

	body, contentType := multipartBody(t)
	r := httptest.NewRequest(http.MethodPost, "/upload?resource_type=audio", body)
	r.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	if err := HandleUpload(up)(context.Background(), rec, r); err == nil {
		t.Fatal("expected an error for an unknown resource type")
	}
}
