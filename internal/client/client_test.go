package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientNew(t *testing.T) {
	c := New("https://example.com/")

	if c.BaseURL != "https://example.com" {
		t.Errorf("expected trailing slash trimmed, got '%s'", c.BaseURL)
	}
	if c.HTTPClient == nil {
		t.Error("expected non-nil HTTP client")
	}
	if c.IsAuthenticated() {
		t.Error("expected new client to not be authenticated")
	}
}

func TestLoginStoresToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["email"] != "ada@example.com" || body["password"] != "secret1" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok","id":"u1","name":"Ada"}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	if err := c.Login("ada@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Token != "tok" || c.UserID != "u1" || c.Name != "Ada" {
		t.Fatalf("unexpected client state %+v", c)
	}
	if !c.IsAuthenticated() {
		t.Fatalf("expected authenticated client")
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer ts.Close()

	err := New(ts.URL).Login("ada@example.com", "wrong")
	if StatusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestCreatePostSendsMultipart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("title") != "Hello" || r.FormValue("category") != "Art" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		f, fh, err := r.FormFile("thumbnail")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			f.Close()
			if fh.Filename != "cover.png" || string(data) != "png-bytes" {
				t.Errorf("unexpected file %s %q", fh.Filename, data)
			}
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"p1","title":"Hello","category":"Art","thumbnail":"cover-x.png","creator":"u1"}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.Token = "tok"
	post, err := c.CreatePost(PostInput{
		Title:       "Hello",
		Category:    "Art",
		Description: "A long enough description",
		Thumbnail:   &Image{Name: "cover.png", Data: strings.NewReader("png-bytes")},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID != "p1" || post.Creator != "u1" {
		t.Fatalf("unexpected post %+v", post)
	}
}

func TestDeletePostReturnsConfirmation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/posts/p1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`"Post p1 deleted successfully."`))
	}))
	defer ts.Close()

	msg, err := New(ts.URL).DeletePost("p1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if msg != "Post p1 deleted successfully." {
		t.Fatalf("unexpected message %q", msg)
	}
}
