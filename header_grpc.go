package grpcwire

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Wire header names (spec.md §6). net/http canonicalizes these for us on
// Set/Get; HTTP/2 transports lowercase them again when framing.
const (
	headerContentType          = "Content-Type"
	headerTE                   = "Te"
	headerGrpcTimeout          = "Grpc-Timeout"
	headerGrpcEncoding         = "Grpc-Encoding"
	headerGrpcAcceptEncoding   = "Grpc-Accept-Encoding"
	headerGrpcStatus           = "Grpc-Status"
	headerGrpcMessage          = "Grpc-Message"
	headerGrpcStatusDetailsBin = "Grpc-Status-Details-Bin"
	headerUserAgent            = "User-Agent"
)

// UserAgent is the value this module advertises on outgoing requests.
func UserAgent() string {
	return "grpcwire/1.0 (+https://github.com/coldharbor/grpcwire)"
}

// contentTypeFor renders spec.md §4.5's application/grpc+{format}.
func contentTypeFor(format string) string {
	return "application/grpc+" + format
}

// acceptContentType implements spec.md §4.5: accept application/grpc,
// application/grpc+octet-stream, or application/grpc+{ourFormat}; reject
// anything else. The returned format is what the message codec should use
// to interpret the body ("" for the generic/octet-stream cases, meaning
// "use the handler's own format").
func acceptContentType(contentType, ourFormat string) (format string, ok bool) {
	switch contentType {
	case "application/grpc":
		return "", true
	case "application/grpc+octet-stream":
		return "octet-stream", true
	case contentTypeFor(ourFormat):
		return ourFormat, true
	}
	return "", false
}

// isReservedHeaderName reports whether a header name is one gRPC reserves
// for its own protocol use (and thus may never appear as custom
// metadata), mirroring grpc-go's isReservedHeader
// (other_examples/354c48ed_..._http_util.go.go).
func isReservedHeaderName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == ':' {
		return true
	}
	switch strings.ToLower(name) {
	case "content-type", "user-agent", "te",
		"grpc-timeout", "grpc-encoding", "grpc-accept-encoding",
		"grpc-status", "grpc-message", "grpc-status-details-bin":
		return true
	}
	return false
}

// buildRequestHeaders assembles the wire headers for an outbound request
// (spec.md §4.5): te: trailers, grpc-timeout (if set), grpc-encoding,
// grpc-accept-encoding, content-type, user-agent, then custom metadata.
func buildRequestHeaders(rh RequestHeaders) (http.Header, error) {
	h := make(http.Header, 6+len(rh.CustomMetadata))
	h.Set(headerTE, "trailers")
	if rh.HasTimeout {
		enc, err := encodeTimeout(rh.Timeout)
		if err != nil {
			return nil, errorf(CodeInternal, "build request headers: encode timeout: %w", err)
		}
		h.Set(headerGrpcTimeout, enc)
	}
	if rh.Compression != "" && rh.Compression != CompressionIdentity {
		h.Set(headerGrpcEncoding, string(rh.Compression))
	}
	if len(rh.AcceptCompression) > 0 {
		h.Set(headerGrpcAcceptEncoding, joinCompressionIDs(rh.AcceptCompression))
	}
	h.Set(headerContentType, contentTypeFor(rh.MessageType))
	h.Set(headerUserAgent, UserAgent())
	if err := appendCustomMetadata(h, rh.CustomMetadata); err != nil {
		return nil, err
	}
	return h, nil
}

// parseRequestHeaders is the server-side counterpart (the caller has
// already checked :method and :path): validate content-type, pull out grpc-timeout,
// grpc-encoding, grpc-accept-encoding, content-type, and everything else
// as custom metadata. Unknown malformed headers are reported as Internal
// per spec.md §4.5.
func parseRequestHeaders(h http.Header, ourFormat string) (RequestHeaders, error) {
	var rh RequestHeaders

	format, ok := acceptContentType(h.Get(headerContentType), ourFormat)
	if !ok {
		return RequestHeaders{}, errorf(CodeInvalidArgument, "unsupported content-type %q", h.Get(headerContentType))
	}
	rh.MessageType = format
	if rh.MessageType == "" || rh.MessageType == "octet-stream" {
		rh.MessageType = ourFormat
	}

	if raw := h.Get(headerGrpcTimeout); raw != "" {
		d, err := decodeTimeout(raw)
		if err != nil {
			return RequestHeaders{}, errorf(CodeInvalidArgument, "parse grpc-timeout: %w", err)
		}
		rh.Timeout, rh.HasTimeout = d, true
	}

	if enc := h.Get(headerGrpcEncoding); enc != "" {
		rh.Compression = CompressionID(enc)
	} else {
		rh.Compression = CompressionIdentity
	}
	rh.AcceptCompression = parseAcceptEncoding(h.Get(headerGrpcAcceptEncoding))

	custom, err := parseCustomMetadata(h)
	if err != nil {
		return RequestHeaders{}, err
	}
	rh.CustomMetadata = custom
	return rh, nil
}

// buildResponseHeaders assembles the server's response HEADERS frame.
func buildResponseHeaders(rh ResponseHeaders, ourFormat string) (http.Header, error) {
	h := make(http.Header, 4+len(rh.CustomMetadata))
	if rh.HasCompression && rh.Compression != CompressionIdentity {
		h.Set(headerGrpcEncoding, string(rh.Compression))
	}
	if len(rh.AcceptCompression) > 0 {
		h.Set(headerGrpcAcceptEncoding, joinCompressionIDs(rh.AcceptCompression))
	}
	h.Set(headerContentType, contentTypeFor(ourFormat))
	if err := appendCustomMetadata(h, rh.CustomMetadata); err != nil {
		return nil, err
	}
	return h, nil
}

// parseResponseHeaders is the client-side counterpart.
func parseResponseHeaders(h http.Header) (ResponseHeaders, error) {
	var rh ResponseHeaders
	if enc := h.Get(headerGrpcEncoding); enc != "" {
		rh.Compression, rh.HasCompression = CompressionID(enc), true
	}
	rh.AcceptCompression = parseAcceptEncoding(h.Get(headerGrpcAcceptEncoding))
	custom, err := parseCustomMetadata(h)
	if err != nil {
		return ResponseHeaders{}, err
	}
	rh.CustomMetadata = custom
	return rh, nil
}

// buildTrailers assembles a call's terminal trailers: grpc-status is
// always present, grpc-message whenever the status has text, plus
// any grpc-status-details-bin and custom metadata.
func buildTrailers(t Trailers, detailsBin string) http.Header {
	h := make(http.Header, 3+len(t.CustomMetadata))
	h.Set(headerGrpcStatus, strconv.Itoa(int(t.Status.Code)))
	if t.Status.Message != "" {
		h.Set(headerGrpcMessage, percentEncode(t.Status.Message))
	}
	if detailsBin != "" {
		h.Set(headerGrpcStatusDetailsBin, detailsBin)
	}
	_ = appendCustomMetadata(h, t.CustomMetadata) // custom metadata was already validated when attached
	return h
}

// parseTrailers parses a terminal header/trailer block into Trailers.
// grpc-status is required; its absence (or an out-of-range value) is a
// protocol violation reported as Internal, per spec.md §4.5 ("Unknown
// headers that are neither reserved nor well-formed custom metadata
// cause a parse error reported as Internal").
func parseTrailers(h http.Header) (Trailers, error) {
	raw := h.Get(headerGrpcStatus)
	if raw == "" {
		return Trailers{}, errorf(CodeInternal, "response is missing grpc-status")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Trailers{}, errorf(CodeInternal, "grpc-status %q is not numeric", raw)
	}
	status, ok := toGrpcStatus(n)
	if !ok {
		return Trailers{}, errorf(CodeInternal, "grpc-status %q is out of range", raw)
	}
	// spec.md §9's first open question: decode grpc-message, but tolerate
	// its absence.
	status.Message = percentDecode(h.Get(headerGrpcMessage))

	custom, err := parseCustomMetadata(h)
	if err != nil {
		return Trailers{}, err
	}
	trailers := Trailers{Status: status, CustomMetadata: custom}

	// Prefer the protobuf-encoded status to the plaintext headers when
	// both are present, matching grpc-go.
	if bin := h.Get(headerGrpcStatusDetailsBin); bin != "" {
		if details, derr := decodeStatusDetails(bin); derr == nil {
			trailers.Status.Code = Code(details.Code)
			trailers.Status.Message = details.Message
			trailers.Details = details.Details
		}
	}
	return trailers, nil
}

// appendCustomMetadata writes each entry's wire name/value into h, after
// rejecting anything under the grpc- reserved prefix. Entries built via
// AsciiMeta/BinaryMeta have already passed this check, so this is a
// defense against hand-built RequestHeaders/ResponseHeaders/Trailers
// values, not the primary validation point.
func appendCustomMetadata(h http.Header, entries []MetadataEntry) error {
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), reservedPrefix) {
			return errorf(CodeInternal, "custom metadata name %q uses the reserved prefix", e.Name())
		}
		h.Add(e.WireName(), e.WireValue())
	}
	return nil
}

// parseCustomMetadata extracts every header that is neither a reserved
// gRPC header nor an HTTP/2 pseudo-header as custom metadata, applying
// the ASCII/binary split on the "-bin" suffix.
func parseCustomMetadata(h http.Header) ([]MetadataEntry, error) {
	var entries []MetadataEntry
	for name, values := range h {
		lower := strings.ToLower(name)
		if isReservedHeaderName(lower) {
			continue
		}
		for _, v := range values {
			if strings.HasSuffix(lower, binarySuffix) {
				raw, err := decodeBinaryHeader(v)
				if err != nil {
					return nil, errorf(CodeInternal, "metadata %q: invalid base64: %w", name, err)
				}
				entry, err := BinaryMeta(lower, raw)
				if err != nil {
					return nil, errorf(CodeInternal, "metadata %q: %w", name, err)
				}
				entries = append(entries, entry)
			} else {
				entry, err := AsciiMeta(lower, v)
				if err != nil {
					return nil, errorf(CodeInternal, "metadata %q: %w", name, err)
				}
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

func joinCompressionIDs(ids []CompressionID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return strings.Join(names, ",")
}

// validatePseudoHeaders implements spec.md §3/§4.8: non-POST yields a 405,
// a malformed :path yields a 400, both surfaced as an *OutOfSpecError
// rather than a gRPC status, since the gRPC spec's "always 200" rule is
// intentionally overridden for these pre-RPC errors.
func validatePseudoHeaders(p pseudoHeaders) error {
	if p.method != http.MethodPost {
		return &OutOfSpecError{HTTPStatus: http.StatusMethodNotAllowed, Message: fmt.Sprintf("method %q is invalid, must be POST", p.method)}
	}
	if p.path == "" || p.path[0] != '/' {
		return &OutOfSpecError{HTTPStatus: http.StatusBadRequest, Message: fmt.Sprintf("path %q is invalid", p.path)}
	}
	return nil
}

// pseudoHeadersFromRequest builds a pseudoHeaders from an *http.Request,
// the bridge both Mux.ServeHTTP and Handler.ServeHTTP use to reach
// validatePseudoHeaders.
func pseudoHeadersFromRequest(r *http.Request) pseudoHeaders {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return pseudoHeaders{
		scheme:    scheme,
		method:    r.Method,
		authority: r.Host,
		path:      r.URL.Path,
	}
}
