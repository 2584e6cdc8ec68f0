package rdb

// lzfCompress/lzfDecompress implement the LZF format spec.md §4.5.1
// names for snapshot strings over 20 bytes ("a fast, low-ratio
// compression codec", per the GLOSSARY). No Go LZF package exists
// anywhere in the retrieval pack (DESIGN.md), so this is a direct port
// of the original's `lzf` crate algorithm (original_source/src/lzf.rs):
// a single-pass LZ77 variant with a small hash-chained match finder, no
// entropy coding stage.
const (
	lzfHashLog  = 14
	lzfHashSize = 1 << lzfHashLog
	lzfMaxLit   = 1 << 5
	lzfMaxOff   = 1 << 13
	lzfMaxRef   = (1 << 8) + (1 << 3)
)

func lzfHash(p []byte) uint32 {
	v := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	return ((v >> (24 - lzfHashLog)) - v*5) & (lzfHashSize - 1)
}

// lzfCompress returns the compressed form of in, and false if compression
// could not proceed (input too short, or the compressed form would not
// have shrunk it — callers fall back to the uncompressed encoding either
// way, per spec.md's "fall back ... if compression fails to shrink").
func lzfCompress(in []byte) ([]byte, bool) {
	if len(in) < 4 {
		return nil, false
	}
	htab := make([]int, lzfHashSize)
	for i := range htab {
		htab[i] = -1
	}

	out := make([]byte, 0, len(in))
	literals := 0
	litStart := 0

	i := 0
	for i < len(in)-2 {
		h := lzfHash(in[i:])
		ref := htab[h]
		htab[h] = i

		var off, lenMatch int
		if ref >= 0 {
			off = i - ref - 1
			if off < lzfMaxOff {
				maxLen := len(in) - i
				if maxLen > lzfMaxRef {
					maxLen = lzfMaxRef
				}
				for lenMatch < maxLen && in[ref+lenMatch] == in[i+lenMatch] {
					lenMatch++
				}
			}
		}

		if lenMatch < 3 {
			i++
			literals++
			if literals == lzfMaxLit {
				out = append(out, byte(literals-1))
				out = append(out, in[litStart:litStart+literals]...)
				literals = 0
				litStart = i
			}
			continue
		}

		if literals > 0 {
			out = append(out, byte(literals-1))
			out = append(out, in[litStart:litStart+literals]...)
			literals = 0
		}

		l := lenMatch - 2
		if l < 7 {
			out = append(out, byte((off>>8)|(l<<5)))
		} else {
			out = append(out, byte((off>>8)|(7<<5)))
			out = append(out, byte(l-7))
		}
		out = append(out, byte(off))

		i += lenMatch
		litStart = i
	}
	for ; i < len(in); i++ {
		literals++
		if literals == lzfMaxLit {
			out = append(out, byte(literals-1))
			out = append(out, in[litStart:litStart+literals]...)
			literals = 0
			litStart = i + 1
		}
	}
	if literals > 0 {
		out = append(out, byte(literals-1))
		out = append(out, in[litStart:litStart+literals]...)
	}

	if len(out) >= len(in) {
		return nil, false
	}
	return out, true
}

// lzfDecompress inverts lzfCompress, expanding in into a buffer of the
// given (already known from the RDB record) original length.
func lzfDecompress(in []byte, outLen int) ([]byte, error) {
	out := make([]byte, 0, outLen)
	i := 0
	for i < len(in) {
		ctrl := int(in[i])
		i++
		if ctrl < lzfMaxLit {
			n := ctrl + 1
			if i+n > len(in) {
				return nil, errLZFCorrupt
			}
			out = append(out, in[i:i+n]...)
			i += n
			continue
		}
		l := ctrl >> 5
		if l == 7 {
			if i >= len(in) {
				return nil, errLZFCorrupt
			}
			l += int(in[i])
			i++
		}
		if i >= len(in) {
			return nil, errLZFCorrupt
		}
		off := (ctrl&0x1f)<<8 | int(in[i])
		i++
		ref := len(out) - off - 1
		if ref < 0 {
			return nil, errLZFCorrupt
		}
		for n := l + 2; n > 0; n-- {
			out = append(out, out[ref])
			ref++
		}
	}
	return out, nil
}
