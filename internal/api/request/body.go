package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// MaxBodyBytes bounds the size of a JSON request body.
const MaxBodyBytes = 1 << 20

// ReadJSON checks that r carries a JSON content type and returns its body.
// The body must be syntactically valid JSON.
func ReadJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		return nil, &MalformedError{Message: "not an application/json content type"}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &MalformedError{Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		return nil, &MalformedError{Message: "failed to read request body"}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &MalformedError{Message: "request body is empty"}
	}
	if !json.Valid(body) {
		return nil, &MalformedError{Message: "request body is not valid JSON"}
	}
	return json.RawMessage(body), nil
}

func isJSONContentType(header string) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
