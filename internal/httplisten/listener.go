// Package httplisten is a path-routed HTTP dispatcher: a mutable
// mapping from URL path to a GET/POST handler pair. Registrations take
// effect on the next incoming request; unmatched paths fall through to
// a plain 404.
package httplisten

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrPathRegistered = errors.New("httplisten: path already registered")
	ErrNotServing     = errors.New("httplisten: listener is not serving")
)

// Handler is the capability a registration exposes to the listener.
// The listener invokes exactly one of these per matched request.
type Handler interface {
	HandleGet(req *Request)
	HandlePost(req *Request)
}

// Listener owns the path->handler table and the HTTP server serving
// it. The table is safe for concurrent register/unregister against
// in-flight request dispatch.
type Listener struct {
	mu      sync.RWMutex
	methods map[string]Handler

	addr string
	srv  *http.Server
	ln   net.Listener
}

func NewListener(addr string) *Listener {
	l := &Listener{
		addr:    addr,
		methods: make(map[string]Handler),
	}
	l.srv = &http.Server{Addr: addr, Handler: l}
	return l
}

// Register binds a handler pair under path. Registering a path twice
// is an error; move a registration with Unregister first.
func (l *Listener) Register(path string, h Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.methods[path]; ok {
		return ErrPathRegistered
	}
	l.methods[path] = h
	return nil
}

// Unregister removes the handler pair under path, if any.
func (l *Listener) Unregister(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.methods, path)
}

// Handler returns the registration under path.
func (l *Listener) Handler(path string) (Handler, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.methods[path]
	return h, ok
}

// ServeHTTP dispatches a request to the registered handler for its
// exact path. Unknown paths get the 404 default; methods other than
// GET/POST get 405.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := l.Handler(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	req := &Request{
		Path:   r.URL.Path,
		Header: r.Header,
		Body:   r.Body,
		w:      w,
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGet(req)
	case http.MethodPost:
		h.HandlePost(req)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("httplisten_dispatch")
}

// Listen binds the configured address; Serve must be called to start
// accepting. Split so callers can learn the bound address before
// serving (":0" listeners in particular).
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.ln = ln
	return nil
}

// Addr returns the bound listen address, or the configured one before
// Listen.
func (l *Listener) Addr() string {
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// Serve blocks serving requests until Shutdown or a listener error.
func (l *Listener) Serve() error {
	if l.ln == nil {
		return ErrNotServing
	}
	err := l.srv.Serve(l.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}
