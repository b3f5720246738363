package generate

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/foundrydata/foundrygen/diag"
)

// maxPatternSource is the longest pattern scanned for anchored safety.
// Longer sources are complexity-capped outright.
const maxPatternSource = 4096

// anchoredSafe reports whether a pattern starts with ^, ends with an
// unescaped $, and contains no look-around and no back-reference. The scan
// is linear and tracks character-class state and escape parity.
func anchoredSafe(src string) bool {
	if len(src) < 2 || src[0] != '^' || src[len(src)-1] != '$' {
		return false
	}
	// The closing $ must not be escaped: count the backslashes before it.
	bs := 0
	for i := len(src) - 2; i >= 0 && src[i] == '\\'; i-- {
		bs++
	}
	if bs%2 == 1 {
		return false
	}

	inClass, escaped := false, false
	for i := 1; i < len(src)-1; i++ {
		ch := src[i]
		if escaped {
			escaped = false
			if !inClass {
				if ch >= '1' && ch <= '9' {
					return false
				}
				if ch == 'k' && i+1 < len(src) && src[i+1] == '<' {
					return false
				}
			}
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case inClass:
			if ch == ']' {
				inClass = false
			}
		case ch == '[':
			inClass = true
			// A leading ] (or ^]) is a literal member of the class.
			if i+1 < len(src) && src[i+1] == '^' {
				i++
			}
			if i+1 < len(src)-1 && src[i+1] == ']' {
				i++
			}
		case ch == '(' && i+2 < len(src) && src[i+1] == '?':
			switch src[i+2] {
			case '=', '!':
				return false
			case '<':
				if i+3 < len(src) && (src[i+3] == '=' || src[i+3] == '!') {
					return false
				}
			}
		}
	}
	return !inClass && !escaped
}

// prepareAlphabet returns the sorted, deduplicated code points of s with
// invalid runes and surrogates removed.
func prepareAlphabet(s string) []rune {
	seen := make(map[rune]bool, len(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == utf8.RuneError || (r >= 0xD800 && r <= 0xDFFF) || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// witnessCap is called once when an enumerator stops for good.
type witnessCap func(reason string, tried int)

// patternEnumerator yields strings matching an anchored-safe pattern in
// length-then-lexicographic order over a fixed alphabet.
type patternEnumerator struct {
	re            *regexp.Regexp
	alphabet      []rune
	maxLength     int
	maxCandidates int

	started bool
	length  int
	digits  []int // least significant first
	trials  int
	done    bool

	tried *int // shared trial counter
	onCap witnessCap
}

// newPatternEnumerator returns nil when the pattern is not eligible. Over
// long sources report a regexComplexityCap through onCap first.
func newPatternEnumerator(re *regexp.Regexp, src string, alphabet []rune, opts PatternWitnessOptions, tried *int, onCap witnessCap) *patternEnumerator {
	if len(src) > maxPatternSource {
		if onCap != nil {
			onCap(diag.ReasonRegexComplexityCap, 0)
		}
		return nil
	}
	if re == nil || !anchoredSafe(src) {
		return nil
	}
	return &patternEnumerator{
		re:            re,
		alphabet:      alphabet,
		maxLength:     opts.MaxLength,
		maxCandidates: opts.MaxCandidates,
		tried:         tried,
		onCap:         onCap,
	}
}

// next returns the next candidate accepted by pred (nil accepts all) that
// matches the pattern. Once it reports false it always reports false.
func (pe *patternEnumerator) next(pred func(string) bool) (string, bool) {
	for !pe.done {
		if !pe.advance() {
			pe.stop(diag.ReasonWitnessDomainExhausted)
			break
		}
		if pe.trials >= pe.maxCandidates {
			pe.stop(diag.ReasonCandidateBudget)
			break
		}
		cand := pe.current()
		pe.trials++
		if pe.tried != nil {
			*pe.tried++
		}
		if pred != nil && !pred(cand) {
			continue
		}
		if pe.re.MatchString(cand) {
			return cand, true
		}
	}
	return "", false
}

func (pe *patternEnumerator) stop(reason string) {
	pe.done = true
	if pe.onCap != nil {
		pe.onCap(reason, pe.trials)
	}
}

// advance moves to the next digit vector, growing the length on overflow.
// It reports false once the length would exceed maxLength.
func (pe *patternEnumerator) advance() bool {
	if !pe.started {
		pe.started = true
		return true // the empty string
	}
	if len(pe.alphabet) == 0 {
		return false
	}
	for i := 0; i < len(pe.digits); i++ {
		pe.digits[i]++
		if pe.digits[i] < len(pe.alphabet) {
			return true
		}
		pe.digits[i] = 0
	}
	pe.length++
	if pe.length > pe.maxLength {
		return false
	}
	pe.digits = make([]int, pe.length)
	return true
}

func (pe *patternEnumerator) current() string {
	buf := make([]rune, pe.length)
	for i, d := range pe.digits {
		buf[pe.length-1-i] = pe.alphabet[d]
	}
	return string(buf)
}
