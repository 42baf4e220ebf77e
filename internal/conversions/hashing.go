package conversions

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

var sha256Hex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// hashIdentity normalizes value with norm and returns its hex SHA-256. Values
// that are already hashed pass through so callers may pre-hash on the client.
func hashIdentity(value string, norm func(string) string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if sha256Hex.MatchString(trimmed) {
		return trimmed
	}
	normalized := norm(trimmed)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeLower(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func normalizePhone(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, v)
}

func normalizeCompact(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, v)
}

func normalizeZip(v string) string {
	v = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), " ", ""))
	if i := strings.IndexByte(v, '-'); i > 0 {
		v = v[:i]
	}
	return v
}

func hashedList(value string, norm func(string) string) []string {
	if h := hashIdentity(value, norm); h != "" {
		return []string{h}
	}
	return nil
}
