package grpcwire

import (
	"errors"
	"fmt"
	"net/http"
)

// Mux dispatches incoming gRPC requests to the Handler registered for
// their procedure path, the same "one path per RPC" routing every gRPC
// transport uses. It's deliberately simpler than a full HTTP router: gRPC
// procedure paths are never a surface clients customize or wildcard.
type Mux struct {
	handlers map[string]*Handler
}

// NewMux constructs an empty Mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]*Handler)}
}

// Handle registers h under its own Descriptor.Procedure.
func (m *Mux) Handle(h *Handler) *Mux {
	m.handlers[h.descriptor.Procedure] = h
	return m
}

// ServeHTTP implements http.Handler, dispatching by :path to the matching
// Handler. A genuine out-of-spec request (non-POST, malformed :path) gets
// a plain HTTP 4xx (spec.md §4.8 step 1); an otherwise well-formed request
// for a procedure nobody registered is a normal gRPC outcome, reported as
// a trailers-only Unimplemented (spec.md §4.8 step 2) rather than a bare
// 404.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := validatePseudoHeaders(pseudoHeadersFromRequest(r)); err != nil {
		var outOfSpec *OutOfSpecError
		if errors.As(err, &outOfSpec) {
			writeOutOfSpecError(w, outOfSpec)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h, ok := m.handlers[r.URL.Path]
	if !ok {
		writeUnimplemented(w, r.URL.Path)
		return
	}
	h.ServeHTTP(w, r)
}

// writeUnimplemented synthesizes a trailers-only Unimplemented response
// for a procedure path with no registered Handler.
func writeUnimplemented(w http.ResponseWriter, procedure string) {
	trailers := Trailers{Status: Status{Code: CodeUnimplemented, Message: fmt.Sprintf("procedure %s is not implemented", procedure)}}
	t := buildTrailers(trailers, "")
	for k, values := range t {
		w.Header()[k] = values
	}
	w.WriteHeader(http.StatusOK)
}
