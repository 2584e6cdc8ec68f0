package object

import "strconv"

// String is the byte-string value engine. A pure-numeric string that
// round-trips exactly through strconv is stored as an int64 (the
// "integer encoding" optimization from spec.md §4.2); everything else is
// stored raw. Decode always materializes the raw byte form, so the two
// encodings compare equal iff their decoded forms are equal.
type String struct {
	raw     []byte
	asInt   int64
	encoded bool
}

func (*String) Kind() Kind { return KindString }

// NewString builds a String value, applying the integer-encoding
// optimization when the bytes round-trip exactly through ParseInt/FormatInt.
func NewString(b []byte) *String {
	if n, ok := tryEncodeInt(b); ok {
		return &String{asInt: n, encoded: true}
	}
	return &String{raw: append([]byte(nil), b...)}
}

// NewStringFromInt builds an int64-encoded String directly (used by
// INCR/INCRBY/DECR/DECRBY, which always produce a numeric result).
func NewStringFromInt(n int64) *String {
	return &String{asInt: n, encoded: true}
}

func tryEncodeInt(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != string(b) {
		return 0, false
	}
	return n, true
}

// Bytes returns the decoded raw byte representation.
func (s *String) Bytes() []byte {
	if s.encoded {
		return []byte(strconv.FormatInt(s.asInt, 10))
	}
	return s.raw
}

// Len returns the decoded byte length.
func (s *String) Len() int {
	if s.encoded {
		return len(strconv.FormatInt(s.asInt, 10))
	}
	return len(s.raw)
}

// Int64 returns the integer value and true if this String is (or decodes
// cleanly as) an integer.
func (s *String) Int64() (int64, bool) {
	if s.encoded {
		return s.asInt, true
	}
	n, ok := tryEncodeInt(s.raw)
	return n, ok
}

// IsIntEncoded reports whether this value is stored in the integer
// encoding (used only by tests/diagnostics; behavior never depends on it).
func (s *String) IsIntEncoded() bool { return s.encoded }

// Equal compares two Strings by decoded byte form, per spec.md §3.
func (s *String) Equal(other *String) bool {
	if s.encoded && other.encoded {
		return s.asInt == other.asInt
	}
	return string(s.Bytes()) == string(other.Bytes())
}

// Clone returns an independent copy (see package-level Clone).
func (s *String) Clone() *String {
	cp := *s
	if !s.encoded {
		cp.raw = append([]byte(nil), s.raw...)
	}
	return &cp
}

// SetBytes replaces the contents in place, re-running the integer
// encoding decision (used by APPEND/SETRANGE/GETSET-style in-place edits).
func (s *String) SetBytes(b []byte) {
	if n, ok := tryEncodeInt(b); ok {
		s.asInt, s.encoded, s.raw = n, true, nil
		return
	}
	s.encoded, s.raw = false, append([]byte(nil), b...)
}
