package grpcwire

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// reservedPrefix is the namespace gRPC reserves for its own wire headers;
// spec.md §3, §8 forbid custom metadata names under it.
const reservedPrefix = "grpc-"

// binarySuffix marks a header name as carrying base64-encoded arbitrary
// bytes rather than printable ASCII (spec.md §3, §4.5).
const binarySuffix = "-bin"

// MetadataEntry is spec.md §3's AsciiHeader/BinaryHeader: one custom
// metadata pair, either printable ASCII or arbitrary binary. Unlike
// http.Header, a MetadataEntry always knows whether it's binary, so
// callers never have to sniff a "-bin" suffix themselves.
type MetadataEntry struct {
	name   string // lowercase, no grpc- prefix, no -bin suffix
	binary bool
	ascii  string
	blob   []byte
}

// Name returns the metadata key without any "-bin" suffix.
func (e MetadataEntry) Name() string { return e.name }

// IsBinary reports whether the entry carries arbitrary bytes.
func (e MetadataEntry) IsBinary() bool { return e.binary }

// AsciiValue returns the entry's value. It panics if IsBinary is true;
// callers are expected to branch on IsBinary first, the same way they'd
// type-switch on spec.md §3's AsciiHeader/BinaryHeader variants.
func (e MetadataEntry) AsciiValue() string {
	if e.binary {
		panic("grpcwire: AsciiValue called on binary metadata entry")
	}
	return e.ascii
}

// BinaryValue returns the entry's raw bytes. It panics if IsBinary is
// false.
func (e MetadataEntry) BinaryValue() []byte {
	if !e.binary {
		panic("grpcwire: BinaryValue called on ascii metadata entry")
	}
	return e.blob
}

// AsciiMeta builds a printable-ASCII custom metadata entry. name must pass
// validateHeaderName and value must contain no CR, LF, or NUL (spec.md
// §3).
func AsciiMeta(name, value string) (MetadataEntry, error) {
	base, binary, err := validateHeaderName(name)
	if err != nil {
		return MetadataEntry{}, err
	}
	if binary {
		return MetadataEntry{}, fmt.Errorf("grpcwire: %q is a binary (-bin) name; use BinaryMeta", name)
	}
	if err := validateAsciiValue(value); err != nil {
		return MetadataEntry{}, err
	}
	return MetadataEntry{name: base, ascii: value}, nil
}

// BinaryMeta builds an arbitrary-bytes custom metadata entry. name may or
// may not already carry the "-bin" suffix; it's normalized away.
func BinaryMeta(name string, value []byte) (MetadataEntry, error) {
	base, _, err := validateHeaderName(strings.TrimSuffix(name, binarySuffix) + binarySuffix)
	if err != nil {
		return MetadataEntry{}, err
	}
	return MetadataEntry{name: base, binary: true, blob: value}, nil
}

// WireName returns the header name exactly as it should appear on the
// wire: the base name, with "-bin" reappended for binary entries.
func (e MetadataEntry) WireName() string {
	if e.binary {
		return e.name + binarySuffix
	}
	return e.name
}

// WireValue returns the header value exactly as it should appear on the
// wire: the ASCII value verbatim, or the padded base64 encoding of the
// binary payload (spec.md §9: emission format isn't fixed, so we pick the
// padded form consistently).
func (e MetadataEntry) WireValue() string {
	if e.binary {
		return encodeBinaryHeader(e.blob)
	}
	return e.ascii
}

// validateHeaderName implements spec.md §3's HeaderName rule: lowercase
// ASCII, no leading "grpc-", trailing "-bin" stripped (reporting binary =
// true) rather than rejected. Returns an error for anything else,
// including uppercase letters and non-ASCII bytes.
func validateHeaderName(name string) (base string, binary bool, err error) {
	if name == "" {
		return "", false, fmt.Errorf("grpcwire: empty metadata name")
	}
	if strings.HasPrefix(name, reservedPrefix) {
		return "", false, fmt.Errorf("grpcwire: metadata name %q uses the reserved %q prefix", name, reservedPrefix)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isPunct := c == '-' || c == '_' || c == '.'
		if !isLower && !isDigit && !isPunct {
			return "", false, fmt.Errorf("grpcwire: metadata name %q is not lowercase ASCII", name)
		}
	}
	if strings.HasSuffix(name, binarySuffix) {
		return strings.TrimSuffix(name, binarySuffix), true, nil
	}
	return name, false, nil
}

// validateAsciiValue enforces spec.md §3: printable ASCII, no CR, LF, or
// NUL.
func validateAsciiValue(value string) error {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\r' || c == '\n' || c == 0 {
			return fmt.Errorf("grpcwire: metadata value contains a forbidden control byte")
		}
		if c > 127 {
			return fmt.Errorf("grpcwire: metadata value %q is not ASCII", value)
		}
	}
	return nil
}

// encodeBinaryHeader always emits padded standard base64 (spec.md §9's
// first open question leaves emission unspecified; we pick padded for
// maximum compatibility with strict base64 decoders).
func encodeBinaryHeader(v []byte) string {
	return base64.StdEncoding.EncodeToString(v)
}

// decodeBinaryHeader accepts both padded and unpadded base64 on read, per
// spec.md §9's mandate. Grounded on grpc-go's own decodeBinHeader
// (other_examples/.../http_util.go): a mod-4 length decides which decoder
// to try.
func decodeBinaryHeader(v string) ([]byte, error) {
	if len(v)%4 == 0 {
		if b, err := base64.StdEncoding.DecodeString(v); err == nil {
			return b, nil
		}
	}
	return base64.RawStdEncoding.DecodeString(v)
}

// percentEncode implements spec.md §4.5/§6's grpc-message encoding: ASCII
// bytes in the printable range pass through unchanged except '%', which
// (like every non-printable or non-ASCII byte) is escaped as %XX.
func percentEncode(msg string) string {
	needsEncoding := false
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c < 0x20 || c > 0x7e || c == '%' {
			needsEncoding = true
			break
		}
	}
	if !needsEncoding {
		return msg
	}
	var out strings.Builder
	for len(msg) > 0 {
		r, size := utf8.DecodeRuneInString(msg)
		chunk := msg[:size]
		if size == 1 {
			c := chunk[0]
			if c >= 0x20 && c <= 0x7e && c != '%' {
				out.WriteByte(c)
			} else {
				fmt.Fprintf(&out, "%%%02X", c)
			}
		} else {
			for i := 0; i < len(chunk); i++ {
				fmt.Fprintf(&out, "%%%02X", chunk[i])
			}
		}
		_ = r
		msg = msg[size:]
	}
	return out.String()
}

// percentDecode is the inverse of percentEncode, tolerant of a missing or
// malformed escape (left verbatim) since grpc-message is best-effort
// diagnostic text (spec.md §9's first open question: decode it, but
// tolerate its absence).
func percentDecode(msg string) string {
	if !strings.ContainsRune(msg, '%') {
		return msg
	}
	var out strings.Builder
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c == '%' && i+2 < len(msg) {
			hi, hiOK := fromHex(msg[i+1])
			lo, loOK := fromHex(msg[i+2])
			if hiOK && loOK {
				out.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		out.WriteByte(c)
	}
	return out.String()
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
