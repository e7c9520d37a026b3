package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds JSON request bodies. Report requests carry whole row
// lists, so this is generous.
const maxJSONBody = 4 << 20

var errBadJSON = errors.New("invalid JSON body")

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

// rowID returns the {id} path parameter.
func rowID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// pathIndex parses a non-negative integer path parameter.
func pathIndex(r *http.Request, name string) (int, error) {
	v := chi.URLParam(r, name)
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q", v)
	}
	return i, nil
}

// sanitizeFileName keeps the base name of an uploaded file and drops control
// characters.
func sanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "upload.pdf"
	}
	return name
}
