package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	maxFormMemory = 1 << 20
	maxPlainBody  = 1 << 20
	// uploadSlack covers multipart framing and text fields around a file.
	uploadSlack = 1 << 20
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errBadBody      = errors.New("malformed request body")
)

// readInput flattens a JSON object, urlencoded form or multipart form into
// string fields. For multipart requests the body is capped at fileLimit plus
// slack and files stay reachable through formFile.
func readInput(w http.ResponseWriter, r *http.Request, fileLimit int64) (map[string]string, error) {
	fields := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, fileLimit+uploadSlack)
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, bodyError(err)
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	case "application/json":
		r.Body = http.MaxBytesReader(w, r.Body, maxPlainBody)
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, bodyError(err)
		}
		for k, v := range raw {
			switch t := v.(type) {
			case string:
				fields[k] = t
			case float64, bool:
				fields[k] = fmt.Sprint(t)
			}
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxPlainBody)
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	}
	return fields, nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return errBodyTooLarge
	}
	return fmt.Errorf("%w: %v", errBadBody, err)
}

// formFile returns the single file uploaded under field, or nil when there is
// none or more than one.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) != 1 {
		return nil
	}
	return files[0]
}

// inputError maps a readInput failure to a client error; tooLarge is the
// message for oversized uploads.
func inputError(err error, tooLarge string) *Error {
	if errors.Is(err, errBodyTooLarge) {
		return &Error{Kind: KindValidation, Message: tooLarge, Err: err}
	}
	return &Error{Kind: KindValidation, Message: "Invalid request body", Err: err}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
