package loader

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// uriScheme identifies how a glTF URI reference is resolved.
type uriScheme int

const (
	// schemeRelative is a path relative to the document location.
	schemeRelative uriScheme = iota
	// schemeData is an inline data: URI.
	schemeData
	// schemeFile is an absolute file: or file:// URI.
	schemeFile
	// schemeRemote is an http: or https: URL.
	schemeRemote
	// schemeUnsupported is any other scheme.
	schemeUnsupported
)

func (s uriScheme) String() string {
	switch s {
	case schemeData:
		return "data"
	case schemeFile:
		return "file"
	case schemeRemote:
		return "remote"
	case schemeUnsupported:
		return "unsupported"
	default:
		return "relative"
	}
}

// gltfURI is a parsed resource reference.
type gltfURI struct {
	scheme uriScheme
	raw    string
	// name is the scheme token for schemeUnsupported, lower-cased.
	name string
	// path is the filesystem path for schemeFile and schemeRelative.
	path string
	// mediaType, isBase64 and payload are set for schemeData.
	mediaType string
	isBase64  bool
	payload   string
}

// parseURI classifies a URI reference.
// Format of data URIs: data:[<mediatype>][;base64],<data>
//
// Parameters:
//   - raw: the reference exactly as written in the document
//
// Returns:
//   - gltfURI: the parsed reference
//   - error: ErrMalformedDataURI when a data: URI has no payload separator
func parseURI(raw string) (gltfURI, error) {
	u := gltfURI{raw: raw}

	name, rest, ok := cutScheme(raw)
	if !ok {
		u.scheme = schemeRelative
		u.path = raw
		return u, nil
	}
	u.name = name

	switch name {
	case "data":
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return u, fmt.Errorf("%w: no ',' separator", ErrMalformedDataURI)
		}
		u.scheme = schemeData
		u.payload = payload
		if mt, isB64 := strings.CutSuffix(header, ";base64"); isB64 {
			u.isBase64 = true
			header = mt
		}
		u.mediaType, _, _ = strings.Cut(header, ";")
	case "file":
		u.scheme = schemeFile
		if p, found := strings.CutPrefix(rest, "//"); found {
			rest = p
		}
		u.path = rest
	case "http", "https":
		u.scheme = schemeRemote
	default:
		u.scheme = schemeUnsupported
	}
	return u, nil
}

// decodeData returns the bytes carried by a data: URI.
//
// Returns:
//   - []byte: the decoded payload
//   - error: ErrMalformedBase64 or ErrMalformedDataURI when the payload cannot be decoded
func (u gltfURI) decodeData() ([]byte, error) {
	if !u.isBase64 {
		s, err := url.PathUnescape(u.payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
		}
		return []byte(s), nil
	}

	data, err := base64.StdEncoding.DecodeString(u.payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(u.payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBase64, err)
		}
	}
	return data, nil
}

// --- Helper Functions ---

// cutScheme splits "scheme:rest". The scheme must start with a letter and contain only
// letters, digits, '+', '-' or '.'. Single letters are treated as Windows drive names, not schemes.
func cutScheme(raw string) (string, string, bool) {
	i := strings.IndexByte(raw, ':')
	if i < 2 {
		return "", "", false
	}
	for j := 0; j < i; j++ {
		c := raw[j]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", "", false
		}
	}
	return strings.ToLower(raw[:i]), raw[i+1:], true
}
