package grpcwire

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
)

// CompressionID is the wire token a peer advertises and selects for
// message-level compression (spec.md §3): "identity", "gzip", "deflate",
// "snappy", or a vendor-defined name.
type CompressionID string

const (
	CompressionIdentity CompressionID = "identity"
	CompressionGzip     CompressionID = "gzip"
	CompressionDeflate  CompressionID = "deflate"
	CompressionSnappy   CompressionID = "snappy"
)

// Compression bundles an algorithm's identity with its (compress,
// decompress) pair (spec.md §3). Messages are small enough, once framed,
// that working on whole byte slices (rather than streaming) keeps this
// interface simple; see envelope.go for how it's plugged into framing.
type Compression struct {
	ID         CompressionID
	Compress   func(data []byte) ([]byte, error)
	Decompress func(data []byte) ([]byte, error)
}

func identityCompression() *Compression {
	return &Compression{
		ID:         CompressionIdentity,
		Compress:   func(data []byte) ([]byte, error) { return data, nil },
		Decompress: func(data []byte) ([]byte, error) { return data, nil },
	}
}

// gzipCompression wires the standard library's compress/gzip.
func gzipCompression() *Compression {
	return &Compression{
		ID: CompressionGzip,
		Compress: func(data []byte) ([]byte, error) {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			if _, err := w.Write(data); err != nil {
				return nil, err
			}
			if err := w.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Decompress: func(data []byte) ([]byte, error) {
			r, err := gzip.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		},
	}
}

// deflateCompression wires the standard library's compress/flate, the
// stdlib's raw-deflate counterpart to gzip.
func deflateCompression() *Compression {
	return &Compression{
		ID: CompressionDeflate,
		Compress: func(data []byte) ([]byte, error) {
			var buf bytes.Buffer
			w, err := flate.NewWriter(&buf, flate.DefaultCompression)
			if err != nil {
				return nil, err
			}
			if _, err := w.Write(data); err != nil {
				return nil, err
			}
			if err := w.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Decompress: func(data []byte) ([]byte, error) {
			r := flate.NewReader(bytes.NewReader(data))
			defer r.Close()
			return io.ReadAll(r)
		},
	}
}

// snappyCompression wires github.com/golang/snappy, a real third-party
// dependency present throughout the retrieval pack (perkeep-perkeep,
// keploy-keploy, and a dozen other_examples/manifests/*). snappy.Encode
// and snappy.Decode already operate on whole byte slices, so this is a
// thin adapter.
func snappyCompression() *Compression {
	return &Compression{
		ID: CompressionSnappy,
		Compress: func(data []byte) ([]byte, error) {
			return snappy.Encode(nil, data), nil
		},
		Decompress: func(data []byte) ([]byte, error) {
			return snappy.Decode(nil, data)
		},
	}
}

// Registry is the fixed set of algorithms a connection knows how to
// decode; it underlies spec.md §4.2's "supported: a mapping CompressionId
// → Compression". Identity is always present; callers add gzip/deflate/
// snappy (or a vendor algorithm) as needed.
type Registry struct {
	byID map[CompressionID]*Compression
}

// NewRegistry builds a Registry containing identity plus any additional
// algorithms supplied.
func NewRegistry(extra ...*Compression) *Registry {
	r := &Registry{byID: map[CompressionID]*Compression{
		CompressionIdentity: identityCompression(),
	}}
	for _, c := range extra {
		r.byID[c.ID] = c
	}
	return r
}

// DefaultRegistry wires every algorithm this module ships: identity,
// gzip, deflate, and snappy.
func DefaultRegistry() *Registry {
	return NewRegistry(gzipCompression(), deflateCompression(), snappyCompression())
}

// Lookup returns the Compression registered for id, if any.
func (r *Registry) Lookup(id CompressionID) (*Compression, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// IDs returns every algorithm this registry can decode, identity first.
func (r *Registry) IDs() []CompressionID {
	ids := make([]CompressionID, 0, len(r.byID))
	ids = append(ids, CompressionIdentity)
	for id := range r.byID {
		if id != CompressionIdentity {
			ids = append(ids, id)
		}
	}
	return ids
}

// CompressionNegotiationFailedError is spec.md §4.2/§7's
// CompressionNegotationFailed(peerOffer): the peer's advertised encodings
// share nothing in common with ours.
type CompressionNegotiationFailedError struct {
	PeerOffer []CompressionID
}

func (e *CompressionNegotiationFailedError) Error() string {
	names := make([]string, len(e.PeerOffer))
	for i, id := range e.PeerOffer {
		names[i] = string(id)
	}
	return fmt.Sprintf("grpcwire: compression negotiation failed: peer offered [%s]", strings.Join(names, ", "))
}

// Negotiation is spec.md §4.2's Negotation record: what we offer, how we
// choose given the peer's offer, and what we can decode regardless of
// what we chose to send.
type Negotiation struct {
	Offer     []CompressionID
	Supported *Registry
	choose    func(peerOffer []CompressionID, supported *Registry) (*Compression, error)

	mu     sync.Mutex
	chosen *Compression
}

// Choose runs the negotiation strategy against the peer's advertised
// grpc-accept-encoding list until it first succeeds, then returns that
// same result on every later call regardless of peerOffer: spec.md §4.2
// says "Negotiation runs once per connection... until then, outgoing
// messages MUST use identity," so a Negotiation fixes its outcome the
// first time a peer's offer yields a choice and holds it for the rest of
// the connection that Negotiation is scoped to. A failed negotiation is
// not cached: the error is returned and the next call runs the strategy
// again.
func (n *Negotiation) Choose(peerOffer []CompressionID) (*Compression, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.chosen != nil {
		return n.chosen, nil
	}
	c, err := n.choose(peerOffer, n.Supported)
	if err != nil {
		return nil, err
	}
	n.chosen = c
	return c, nil
}

// Chosen reports the algorithm this Negotiation has already settled on, if
// Choose has succeeded at least once. Callers use this to pick the
// default compression for outgoing messages once a connection has
// negotiated; before that, identity is used (spec.md §4.2).
func (n *Negotiation) Chosen() (*Compression, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chosen, n.chosen != nil
}

// AcceptEncodingHeader renders Offer as the comma-separated value for
// grpc-accept-encoding.
func (n *Negotiation) AcceptEncodingHeader() string {
	return joinCompressionIDs(n.Offer)
}

// NoCompression is spec.md §4.2's "none" strategy: only ever advertise
// and use identity.
func NoCompression() *Negotiation {
	return &Negotiation{
		Offer:     []CompressionID{CompressionIdentity},
		Supported: NewRegistry(),
		choose: func([]CompressionID, *Registry) (*Compression, error) {
			return identityCompression(), nil
		},
	}
}

// RequireCompression is spec.md §4.2's "require(algo)" strategy: insist
// the peer supports algo, failing negotiation otherwise.
func RequireCompression(registry *Registry, id CompressionID) (*Negotiation, error) {
	compression, ok := registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("grpcwire: %q is not in the supplied registry", id)
	}
	return &Negotiation{
		Offer:     []CompressionID{id},
		Supported: registry,
		choose: func(peerOffer []CompressionID, _ *Registry) (*Compression, error) {
			for _, peerID := range peerOffer {
				if peerID == id {
					return compression, nil
				}
			}
			return nil, &CompressionNegotiationFailedError{PeerOffer: peerOffer}
		},
	}, nil
}

// PreferOrder is spec.md §4.2's "chooseFirst(ourOrderedList)" strategy:
// walk our preferred order and pick the first algorithm the peer also
// supports.
func PreferOrder(registry *Registry, ids ...CompressionID) (*Negotiation, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("grpcwire: PreferOrder requires a non-empty offer")
	}
	for _, id := range ids {
		if _, ok := registry.Lookup(id); !ok {
			return nil, fmt.Errorf("grpcwire: %q is not in the supplied registry", id)
		}
	}
	return &Negotiation{
		Offer:     ids,
		Supported: registry,
		choose: func(peerOffer []CompressionID, registry *Registry) (*Compression, error) {
			peerSet := make(map[CompressionID]struct{}, len(peerOffer))
			for _, id := range peerOffer {
				peerSet[id] = struct{}{}
			}
			for _, id := range ids {
				if _, ok := peerSet[id]; ok {
					compression, _ := registry.Lookup(id)
					return compression, nil
				}
			}
			return nil, &CompressionNegotiationFailedError{PeerOffer: peerOffer}
		},
	}, nil
}

// parseAcceptEncoding splits a grpc-accept-encoding header value into its
// component CompressionIDs.
func parseAcceptEncoding(header string) []CompressionID {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	ids := make([]CompressionID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			ids = append(ids, CompressionID(p))
		}
	}
	return ids
}
