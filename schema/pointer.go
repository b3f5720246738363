package schema

import (
	"net/url"
	"strconv"
	"strings"
)

// EscapeToken escapes one pointer segment (~ → ~0, / → ~1).
func EscapeToken(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// Join appends escaped segments to a canonical pointer.
func Join(ptr string, segments ...string) string {
	var b strings.Builder
	b.Grow(len(ptr) + 8*len(segments))
	b.WriteString(ptr)
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(EscapeToken(seg))
	}
	return b.String()
}

// JoinIndex appends keyword/index to ptr.
func JoinIndex(ptr, keyword string, i int) string {
	return Join(ptr, keyword, strconv.Itoa(i))
}

// Split returns the unescaped segments of ptr. The root pointer "" has none.
func Split(ptr string) []string {
	if ptr == "" || ptr == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, p := range parts {
		parts[i] = UnescapeToken(p)
	}
	return parts
}

// Parent returns the pointer with its last segment removed.
func Parent(ptr string) (string, bool) {
	i := strings.LastIndexByte(ptr, '/')
	if i < 0 {
		return "", false
	}
	return ptr[:i], true
}

// FromFragment converts a URI fragment ("#/a/b") into a canonical pointer.
func FromFragment(ref string) (string, bool) {
	if !strings.HasPrefix(ref, "#") {
		return "", false
	}
	frag := ref[1:]
	if frag != "" && !strings.HasPrefix(frag, "/") {
		return "", false
	}
	// Fragments may percent-encode; a malformed escape keeps the raw text.
	if strings.Contains(frag, "%") {
		if decoded, err := url.PathUnescape(frag); err == nil {
			frag = decoded
		}
	}
	return frag, true
}
