package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// ParseClientHeader extracts the client identity from a Storefront-Client header.
// Format: version="1.4.0", platform="web" (RFC 8941 Dictionary).
//
// Examples:
//   - version="1.4.0", platform="web" → {1.4.0 web}
//   - version="2.0.0";build=88       → {2.0.0 } (params ignored)
//
// Returns error if header is empty, malformed, or missing the version key.
func ParseClientHeader(header string) (ClientInfo, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ClientInfo{}, errors.New("empty Storefront-Client header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return ClientInfo{}, fmt.Errorf("invalid Storefront-Client header: %w", err)
	}

	version, err := stringMember(dict, "version")
	if err != nil {
		return ClientInfo{}, err
	}
	if version == "" {
		return ClientInfo{}, errors.New("version key not found in Storefront-Client header")
	}

	platform, err := stringMember(dict, "platform")
	if err != nil {
		return ClientInfo{}, err
	}

	return ClientInfo{Version: strings.TrimPrefix(version, "v"), Platform: platform}, nil
}

// stringMember returns "" when key is absent.
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	switch v := item.Value.(type) {
	case string:
		return v, nil
	case httpsfv.Token:
		return string(v), nil
	default:
		return "", fmt.Errorf("%s value must be a string", key)
	}
}
