package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func fileHeader(t *testing.T, field, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File[field][0]
}

func newIntake(t *testing.T) *Intake {
	t.Helper()
	in, err := New(filepath.Join(t.TempDir(), "uploads"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new intake: %v", err)
	}
	return in
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSaveAndRemove(t *testing.T) {
	in := newIntake(t)
	data := bytes.Repeat([]byte{0xff}, 1024)

	name, err := in.Save(fileHeader(t, "thumbnail", "cover photo.PNG", data), MaxThumbnailBytes)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(name, "cover_photo") || !strings.HasSuffix(name, ".png") {
		t.Fatalf("unexpected name %q", name)
	}
	got, err := os.ReadFile(filepath.Join(in.Dir(), name))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("saved content differs")
	}

	if err := in.Remove(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := in.Remove(name); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if entries := dirEntries(t, in.Dir()); len(entries) != 0 {
		t.Fatalf("expected empty dir, got %v", entries)
	}
}

func TestSameNameGetsDistinctFiles(t *testing.T) {
	in := newIntake(t)
	a, err := in.Save(fileHeader(t, "avatar", "me.jpg", []byte("a")), MaxAvatarBytes)
	if err != nil {
		t.Fatalf("save a: %v", err)
	}
	b, err := in.Save(fileHeader(t, "avatar", "me.jpg", []byte("b")), MaxAvatarBytes)
	if err != nil {
		t.Fatalf("save b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct names, both %q", a)
	}
}

func TestRejectsOversizeWithoutWriting(t *testing.T) {
	in := newIntake(t)
	fh := fileHeader(t, "avatar", "big.png", bytes.Repeat([]byte{1}, MaxAvatarBytes+1))
	if _, err := in.Save(fh, MaxAvatarBytes); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if entries := dirEntries(t, in.Dir()); len(entries) != 0 {
		t.Fatalf("expected nothing written, got %v", entries)
	}

	// Header claims a small size but the content is larger.
	fh = fileHeader(t, "avatar", "liar.png", bytes.Repeat([]byte{1}, 2048))
	fh.Size = 10
	if _, err := in.Save(fh, 1024); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for understated size, got %v", err)
	}
	if entries := dirEntries(t, in.Dir()); len(entries) != 0 {
		t.Fatalf("expected partial file removed, got %v", entries)
	}
}

func TestMissingFile(t *testing.T) {
	in := newIntake(t)
	if _, err := in.Save(nil, MaxAvatarBytes); !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
}

func TestRemoveStaysInsideDir(t *testing.T) {
	root := t.TempDir()
	in, err := New(filepath.Join(root, "uploads"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	outside := filepath.Join(root, "keep.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := in.Remove("../keep.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside uploads dir was touched: %v", err)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]struct{ prefix, suffix string }{
		"photo.jpg":             {"photo", ".jpg"},
		"../../etc/passwd":      {"passwd", ""},
		`C:\Users\me\pic.jpeg`:  {"pic", ".jpeg"},
		"spaces and $ymbols.gif": {"spaces_and_ymbols", ".gif"},
	}
	for in, want := range cases {
		got := FileName(in)
		if !strings.HasPrefix(got, want.prefix) || !strings.HasSuffix(got, want.suffix) {
			t.Fatalf("FileName(%q) = %q, want prefix %q suffix %q", in, got, want.prefix, want.suffix)
		}
		if strings.ContainsAny(got, `/\ `) {
			t.Fatalf("FileName(%q) = %q contains unsafe characters", in, got)
		}
	}

	long := "a." + strings.Repeat("x", 300)
	got := FileName(long)
	if len(got) > maxBaseLen+36+maxExtLen {
		t.Fatalf("FileName(%q) is %d bytes", long, len(got))
	}
	if !strings.HasPrefix(got, "a") || strings.Contains(got, "xxx") {
		t.Fatalf("expected overlong extension dropped, got %q", got)
	}

	got = FileName(strings.Repeat("b", 300) + ".png")
	if len(got) != maxBaseLen+36+len(".png") || !strings.HasSuffix(got, ".png") {
		t.Fatalf("expected capped base with extension kept, got %q", got)
	}
}

func TestSaveOverlongExtension(t *testing.T) {
	in := newIntake(t)
	fh := fileHeader(t, "thumbnail", "a."+strings.Repeat("x", 300), []byte("img"))
	name, err := in.Save(fh, 100)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(in.Dir(), name)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}
