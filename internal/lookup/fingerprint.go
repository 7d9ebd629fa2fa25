package lookup

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"bandroom/internal/models"
)

// ErrInvalidInput signals malformed normalization input: an unknown
// operation kind or a missing required field. It is the only lookup error a
// caller ever sees.
var ErrInvalidInput = fmt.Errorf("invalid lookup input")

// requiredFields lists the fields each operation kind must supply before a
// fingerprint can be computed.
var requiredFields = map[models.OperationKind][]string{
	models.KindMetadataLookup:       {"title", "artist"},
	models.KindFreeTextSearch:       {"query"},
	models.KindAIFallback:           {"title", "artist"},
	models.KindRepertoireGeneration: {"genre"},
	models.KindNotationGeneration:   {"title", "artist", "instrument"},
}

// Normalize canonicalizes the input fields and derives the cache
// fingerprint. Fields are lower-cased and trimmed; the fingerprint is the
// MD5 hex digest of a key-sorted serialization of kind plus fields, so field
// order never changes the result. Collision resistance, not secrecy, is the
// requirement here.
func Normalize(kind models.OperationKind, fields map[string]string) (fingerprint string, normalized map[string]string, err error) {
	if !kind.Valid() {
		return "", nil, fmt.Errorf("%w: unknown operation kind %q", ErrInvalidInput, kind)
	}

	normalized = make(map[string]string, len(fields)+1)
	for k, v := range fields {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}

	for _, field := range requiredFields[kind] {
		if normalized[field] == "" {
			return "", nil, fmt.Errorf("%w: %s requires field %q", ErrInvalidInput, kind, field)
		}
	}

	keyed := make(map[string]string, len(normalized)+1)
	for k, v := range normalized {
		keyed[k] = v
	}
	keyed["kind"] = string(kind)

	// encoding/json serializes map keys in sorted order, which gives the
	// stable encoding the fingerprint needs
	serialized, err := json.Marshal(keyed)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	sum := md5.Sum(serialized)
	return hex.EncodeToString(sum[:]), normalized, nil
}
