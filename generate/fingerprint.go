package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// fingerprinter computes structural content hashes of generated JSON
// values. Two values have the same fingerprint exactly when they are equal
// as JSON: object key order is irrelevant, and numbers compare by value.
type fingerprinter struct {
	maxDepth int // Guardrail for pathological nesting
}

func newFingerprinter() *fingerprinter {
	return &fingerprinter{maxDepth: 1000}
}

// key returns the hex sha256 of the canonical encoding of v.
func (fp *fingerprinter) key(v any) string {
	w := newCanonWriter()
	fp.encode(v, w, 0)
	sum := sha256.Sum256(w.Bytes())
	return hex.EncodeToString(sum[:])
}

// equal reports JSON equality of a and b.
func (fp *fingerprinter) equal(a, b any) bool {
	wa, wb := newCanonWriter(), newCanonWriter()
	fp.encode(a, wa, 0)
	fp.encode(b, wb, 0)
	return string(wa.Bytes()) == string(wb.Bytes())
}

func (fp *fingerprinter) encode(v any, w *canonWriter, depth int) {
	if depth > fp.maxDepth {
		w.writeString(`{"$max_depth":true}`)
		return
	}
	switch t := v.(type) {
	case nil:
		w.writeString("null")
	case bool:
		if t {
			w.writeString("true")
		} else {
			w.writeString("false")
		}
	case string:
		w.writeString(strconv.Quote(t))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.writeByte('{')
		for i, k := range keys {
			if i > 0 {
				w.writeByte(',')
			}
			w.writeString(strconv.Quote(k))
			w.writeByte(':')
			fp.encode(t[k], w, depth+1)
		}
		w.writeByte('}')
	case []any:
		w.writeByte('[')
		for i, e := range t {
			if i > 0 {
				w.writeByte(',')
			}
			fp.encode(e, w, depth+1)
		}
		w.writeByte(']')
	default:
		if f, ok := numberValue(v); ok {
			w.writeString(canonNumber(f))
			return
		}
		w.writeString(strconv.Quote(fmt.Sprintf("?%T", v)))
	}
}

func canonNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// canonWriter is a simple buffer for building canonical representations.
type canonWriter struct {
	buf []byte
}

func newCanonWriter() *canonWriter {
	return &canonWriter{buf: make([]byte, 0, 256)}
}

func (w *canonWriter) writeByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *canonWriter) writeString(s string) {
	w.buf = append(w.buf, s...)
}

func (w *canonWriter) Bytes() []byte {
	return w.buf
}
