package httplisten

import (
	"io"
	"net/http"
)

// Request is one in-flight HTTP exchange handed to a registered
// handler: the request path and headers, the readable body, and the
// writable response.
type Request struct {
	Path   string
	Header http.Header
	Body   io.Reader

	w http.ResponseWriter
}

// SendStatus writes the status line and a fixed
// "Content-type: text/html" header, ending the header section.
func (r *Request) SendStatus(code int) {
	r.w.Header().Set("Content-Type", "text/html")
	r.w.WriteHeader(code)
}

// Write writes response body bytes.
func (r *Request) Write(b []byte) (int, error) {
	return r.w.Write(b)
}

// ContentLength returns the declared request body length, or -1 when
// the header is absent or malformed.
func (r *Request) ContentLength() int64 {
	raw := r.Header.Get("Content-Length")
	if raw == "" {
		return -1
	}
	var n int64
	for _, c := range []byte(raw) {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
