package storagekey

import (
	"fmt"
	"strings"
)

// Encode turns a channel name into a filesystem-safe storage key. ASCII
// letters, digits, '.' and '-' pass through, a space becomes '_', and every
// other byte (including '_' and '%' themselves) is percent-encoded as %XX.
// The encoding is injective: two distinct channel names never collide on
// disk.
func Encode(name string) string {
	if name == "" {
		// Distinct from any non-empty encoding since '%' must be
		// followed by two hex digits elsewhere
		return "%"
	}

	var sb strings.Builder
	sb.Grow(len(name))
	for _, b := range []byte(name) {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '.', b == '-':
			sb.WriteByte(b)
		case b == ' ':
			sb.WriteByte('_')
		default:
			fmt.Fprintf(&sb, "%%%02X", b)
		}
	}
	return sb.String()
}

// Decode reverses Encode. Used to recover channel names when listing stored
// summaries.
func Decode(key string) (string, error) {
	if key == "%" {
		return "", nil
	}

	var sb strings.Builder
	sb.Grow(len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '%':
			if i+2 >= len(key) {
				return "", fmt.Errorf("truncated escape in key %q", key)
			}
			var b byte
			if _, err := fmt.Sscanf(key[i+1:i+3], "%02X", &b); err != nil {
				return "", fmt.Errorf("invalid escape in key %q: %w", key, err)
			}
			sb.WriteByte(b)
			i += 2
		case '_':
			sb.WriteByte(' ')
		default:
			sb.WriteByte(key[i])
		}
	}
	return sb.String(), nil
}
