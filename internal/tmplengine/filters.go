package tmplengine

import (
	"regexp"
	"strings"
)

// Sanitize replaces path separators with '-', for embedding a branch name
// into a filesystem path segment (§4.B).
func Sanitize(s string) string {
	r := strings.NewReplacer("/", "-", "\\", "-")
	return r.Replace(s)
}

var (
	sanitizeDBInvalid   = regexp.MustCompile(`[^a-z0-9_]+`)
	sanitizeDBCollapse  = regexp.MustCompile(`_+`)
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// base36Hash3 returns a 3-character base-36 digest of s, computed with a
// simple FNV-1a fold — deterministic and fast, no cryptographic requirement
// since it only needs to disambiguate truncated/canonicalised collisions
// (§8 invariant 10).
func base36Hash3(s string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	out := make([]byte, 3)
	for i := 2; i >= 0; i-- {
		out[i] = base36Alphabet[h%36]
		h /= 36
	}
	return string(out)
}

// SanitizeDB canonicalises a string into a form safe to use as a database
// identifier: lowercase, non-alphanumerics collapsed to single underscores,
// a leading-digit guard, and a 3-char base-36 hash suffix computed over the
// *pre-sanitisation* input (not the truncated/canonicalised prefix) so two
// inputs that collapse to the same canonical prefix still diverge after
// truncation — ported from original_source's config/expansion.rs, which
// computes the hash before truncating rather than after (§8 invariant 10,
// SPEC_FULL.md "sanitize_db collision suffix").
func SanitizeDB(s string) string {
	hash := base36Hash3(s)

	lower := strings.ToLower(s)
	body := sanitizeDBInvalid.ReplaceAllString(lower, "_")
	body = sanitizeDBCollapse.ReplaceAllString(body, "_")
	body = strings.Trim(body, "_")
	if body == "" {
		body = "_"
	}
	if body[0] >= '0' && body[0] <= '9' {
		body = "_" + body
	}

	suffix := "_" + hash
	maxBodyLen := 63 - len(suffix)
	if maxBodyLen < 0 {
		maxBodyLen = 0
	}
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen]
	}
	return body + suffix
}

// HashPort hashes s to an integer in [10000, 20000), for deriving a stable
// per-branch dev-server port from a branch name (§4.B).
func HashPort(s string) int {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return 10000 + int(h%10000)
}
