package generate

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/itchyny/timefmt-go"

	"github.com/foundrydata/foundrygen/schema"
)

// FormatGenerator produces a value for a string format from a deterministic
// seed. The same seed must always yield the same string.
type FormatGenerator func(seed uint32) string

// FormatRegistry maps format names to generators. A registry is plain data
// owned by the caller; the engine only reads it.
type FormatRegistry struct {
	gens map[string]FormatGenerator
}

// NewFormatRegistry returns an empty registry.
func NewFormatRegistry() *FormatRegistry {
	return &FormatRegistry{gens: make(map[string]FormatGenerator)}
}

// Register adds or replaces the generator for name.
func (r *FormatRegistry) Register(name string, g FormatGenerator) {
	r.gens[name] = g
}

// Lookup returns the generator for name.
func (r *FormatRegistry) Lookup(name string) (FormatGenerator, bool) {
	if r == nil {
		return nil, false
	}
	g, ok := r.gens[name]
	return g, ok
}

// Names returns the registered format names, sorted.
func (r *FormatRegistry) Names() []string {
	out := make([]string, 0, len(r.gens))
	for n := range r.gens {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// formatEpoch anchors generated timestamps; the seed picks a second within
// the following year.
var formatEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func seedTime(seed uint32) time.Time {
	return formatEpoch.Add(time.Duration(seed%(366*24*3600)) * time.Second)
}

// DefaultFormats returns a registry with generators for the common JSON
// Schema string formats.
func DefaultFormats() *FormatRegistry {
	r := NewFormatRegistry()
	r.Register("date-time", func(seed uint32) string {
		return timefmt.Format(seedTime(seed), "%Y-%m-%dT%H:%M:%SZ")
	})
	r.Register("date", func(seed uint32) string {
		return timefmt.Format(seedTime(seed), "%Y-%m-%d")
	})
	r.Register("time", func(seed uint32) string {
		return timefmt.Format(seedTime(seed), "%H:%M:%SZ")
	})
	r.Register("uuid", func(seed uint32) string {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], seed)
		return uuid.NewSHA1(uuid.NameSpaceOID, b[:]).String()
	})
	r.Register("email", func(seed uint32) string {
		return fmt.Sprintf("user%d@example.com", seed%100000)
	})
	r.Register("uri", func(seed uint32) string {
		return fmt.Sprintf("https://example.com/r/%d", seed%100000)
	})
	r.Register("hostname", func(seed uint32) string {
		return fmt.Sprintf("host%d.example.com", seed%100000)
	})
	r.Register("ipv4", func(seed uint32) string {
		return fmt.Sprintf("10.%d.%d.%d", (seed>>16)&0xff, (seed>>8)&0xff, seed&0xff)
	})
	r.Register("ipv6", func(seed uint32) string {
		return fmt.Sprintf("2001:db8::%x:%x", seed>>16, seed&0xffff)
	})
	return r
}

// formatValue generates a string for format at ptr. The value is rejected
// when it breaks the length bounds, or when ValidateFormats is set and
// strfmt knows the format and says it is invalid.
func (e *engine) formatValue(format string, sc *scalarConstraints, ptr string, item int) (string, bool) {
	gen, ok := e.formats.Lookup(format)
	if !ok {
		return "", false
	}
	s := gen(pathSeed(itemSeed(e.seed, item), ptr))
	if !lengthFits(s, sc.minLen, sc.maxLen) {
		return "", false
	}
	if sc.pattern != nil {
		if re := e.regex(*sc.pattern); re != nil && !re.MatchString(s) {
			return "", false
		}
	}
	if e.opts.ValidateFormats && strfmt.Default.ContainsName(format) && !strfmt.Default.Validates(format, s) {
		e.log.Debugf("format %q value %q rejected at %q", format, s, schema.Join(ptr, "format"))
		return "", false
	}
	return s, true
}
