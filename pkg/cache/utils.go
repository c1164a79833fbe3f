package cache

import (
	"crypto/md5"
	"encoding/hex"
)

// SanitizeKey maps an arbitrary key to a filesystem-safe name by
// replacing any character outside [A-Za-z0-9_-] with '_'. The mapping
// is many-to-one: distinct keys that collide after sanitization alias
// to the same durable entry. Callers that cannot tolerate aliasing
// should pass HashKey(key) instead.
func SanitizeKey(key string) string {
	b := []byte(key)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

// HashKey generates an MD5 hex digest of a key, collision-free for
// practical purposes where SanitizeKey would alias.
func HashKey(key string) string {
	hasher := md5.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}
