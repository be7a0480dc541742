package utils

import (
	"mime"
	"net/http"
)

// HasContentType reports whether the request carries the given media type in
// its Content-Type header. Parameters such as boundary or charset are ignored,
// so "multipart/form-data; boundary=xyz" still matches "multipart/form-data".
func HasContentType(r *http.Request, mediaType string) bool {
	if r == nil {
		return false
	}

	header := r.Header.Get("Content-Type")
	if header == "" {
		return false
	}

	parsed, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return parsed == mediaType
}

// IsMultipartFormData reports whether the request is a multipart/form-data
// upload, which is how MT940 statement files reach the bridge.
func IsMultipartFormData(r *http.Request) bool {
	return HasContentType(r, "multipart/form-data")
}
