package grpcwire

import (
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// OutOfSpecError is spec.md §4.8 step 1's pre-RPC rejection: a request
// that never became a gRPC call at all (wrong method, malformed :path),
// reported as a genuine HTTP status instead of a trailers-only gRPC
// status. This is the type validatePseudoHeaders (header_grpc.go)
// returns.
type OutOfSpecError struct {
	HTTPStatus int
	Message    string
}

func (e *OutOfSpecError) Error() string { return e.Message }

// writeOutOfSpecError writes err's HTTP status directly, setting Allow:
// POST on a 405 the way ServeHTTP already did before this existed.
func writeOutOfSpecError(w http.ResponseWriter, err *OutOfSpecError) {
	if err.HTTPStatus == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}
	w.WriteHeader(err.HTTPStatus)
}

// NewH2CServer wraps handler (typically a *Mux) so it can accept cleartext
// HTTP/2 (h2c) connections on a plain *http.Server, the standard-library
// equivalent of gin's UseH2C that cmd/repro uses. Most gRPC deployments run
// behind a TLS-terminating proxy and never need this, but it's the
// zero-dependency path for local development and tests.
//
// Grounded on cmd/repro/main.go's app.UseH2C, generalized from gin to
// golang.org/x/net/http2/h2c directly (an x/net subpackage already pulled
// in transitively through gin's own H2C support).
func NewH2CServer(addr string, handler http.Handler) *http.Server {
	h2s := &http2.Server{}
	return &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(handler, h2s),
	}
}
