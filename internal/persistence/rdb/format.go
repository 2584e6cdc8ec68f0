// Package rdb implements the binary snapshot format from spec.md
// §4.5.1: the REDIS0001 magic, the two-bit length-prefix encoding
// scheme, integer/LZF string sub-encodings, double sentinel encoding,
// and atomic temp-file-then-rename writes.
//
// Framing (magic, length prefixes, per-record structure) mirrors
// internal/logx's sibling binary-checkpoint idiom in the teacher
// (pkg/metricstore/binaryCheckpoint.go's bufio.Writer/Reader +
// encoding/binary framing), generalized to the exact byte layout
// spec.md and original_source/src/rdb.rs specify byte-for-byte.
package rdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// errLZFCorrupt is returned by lzfDecompress on a truncated or malformed
// stream (a corrupt snapshot, per spec.md §7's "unrecoverable snapshot-
// load corruption" error class).
var errLZFCorrupt = errors.New("rdb: corrupt LZF stream")

// Magic is the 9-byte file header.
const Magic = "REDIS0001"

// Opcode bytes, per spec.md §4.5.1 / original_source's REDIS_* constants.
const (
	OpExpireTime byte = 253
	OpSelectDB   byte = 254
	OpEOF        byte = 255
)

// Value type codes, matching internal/object.Kind's iota order.
const (
	TypeString   byte = 0
	TypeList     byte = 1
	TypeSet      byte = 2
	TypeScoreSet byte = 3
)

// Length-prefix top-2-bit schemes.
const (
	len6Bit  = 0
	len14Bit = 1
	len32Bit = 2
	lenEnc   = 3
)

// String sub-encodings (used when the top-2-bit scheme is lenEnc).
const (
	encInt8  = 0
	encInt16 = 1
	encInt32 = 2
	encLZF   = 3
)

// writeLength appends n using the smallest of the 6-bit/14-bit/32-bit
// schemes, per spec.md's "top two bits of the first byte select a length
// prefix" rule.
func writeLength(w *bufio.Writer, n uint64) error {
	switch {
	case n < 1<<6:
		return w.WriteByte(byte(n) | (len6Bit << 6))
	case n < 1<<14:
		if err := w.WriteByte(byte(n>>8) | (len14Bit << 6)); err != nil {
			return err
		}
		return w.WriteByte(byte(n))
	default:
		if err := w.WriteByte(len32Bit << 6); err != nil {
			return err
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		_, err := w.Write(buf[:])
		return err
	}
}

// readLength reads a length, reporting (length, isEncoded, err).
// When isEncoded is true, length actually holds the 6-bit sub-encoding
// selector (encInt8/16/32/LZF), per original_source's rdb_load_len.
func readLength(r *bufio.Reader) (n uint64, isEncoded bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	switch b >> 6 {
	case len6Bit:
		return uint64(b & 0x3F), false, nil
	case lenEnc:
		return uint64(b & 0x3F), true, nil
	case len14Bit:
		b2, err := r.ReadByte()
		if err != nil {
			return 0, false, err
		}
		return (uint64(b&0x3F) << 8) | uint64(b2), false, nil
	default: // len32Bit
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, false, err
		}
		return uint64(binary.BigEndian.Uint32(buf[:])), false, nil
	}
}

// writeString emits the smallest-fitting encoding for b: an INT* encoding
// if it round-trips as a signed integer within 11 bytes, LZF if enabled
// and profitable for strings over 20 bytes, else a plain length+bytes
// record, per spec.md's "String encoding" rule.
func writeString(w *bufio.Writer, b []byte, compress bool) error {
	if len(b) <= 11 {
		if ok, err := writeIntEncoding(w, b); ok || err != nil {
			return err
		}
	}
	if compress && len(b) > 20 {
		compressed, ok := lzfCompress(b)
		if ok && len(compressed) < len(b) {
			if err := w.WriteByte(lenEnc<<6 | encLZF); err != nil {
				return err
			}
			if err := writeLength(w, uint64(len(compressed))); err != nil {
				return err
			}
			if err := writeLength(w, uint64(len(b))); err != nil {
				return err
			}
			_, err := w.Write(compressed)
			return err
		}
	}
	if err := writeLength(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// writeIntEncoding attempts the INT8/16/32 encoding, returning ok=false if
// b does not round-trip exactly as a signed decimal integer.
func writeIntEncoding(w *bufio.Writer, b []byte) (bool, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return false, nil
	}
	if strconv.FormatInt(n, 10) != string(b) {
		return false, nil
	}
	switch {
	case n >= math.MinInt8 && n <= math.MaxInt8:
		if err := w.WriteByte(lenEnc<<6 | encInt8); err != nil {
			return true, err
		}
		return true, w.WriteByte(byte(int8(n)))
	case n >= math.MinInt16 && n <= math.MaxInt16:
		if err := w.WriteByte(lenEnc<<6 | encInt16); err != nil {
			return true, err
		}
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(int16(n)))
		_, err := w.Write(buf[:])
		return true, err
	case n >= math.MinInt32 && n <= math.MaxInt32:
		if err := w.WriteByte(lenEnc<<6 | encInt32); err != nil {
			return true, err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(n)))
		_, err := w.Write(buf[:])
		return true, err
	default:
		return false, nil
	}
}

// readString is the inverse of writeString.
func readString(r *bufio.Reader) ([]byte, error) {
	n, isEncoded, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if !isEncoded {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	switch n {
	case encInt8:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(int64(int8(b)), 10)), nil
	case encInt16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		v := int16(binary.LittleEndian.Uint16(buf[:]))
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case encInt32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		v := int32(binary.LittleEndian.Uint32(buf[:]))
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case encLZF:
		clen, _, err := readLength(r)
		if err != nil {
			return nil, err
		}
		olen, _, err := readLength(r)
		if err != nil {
			return nil, err
		}
		compressed := make([]byte, clen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		return lzfDecompress(compressed, int(olen))
	default:
		return nil, fmt.Errorf("rdb: unknown string sub-encoding %d", n)
	}
}

// writeDouble encodes a float per spec.md's sentinel scheme: 253=NaN,
// 254=+Inf, 255=-Inf; anything else is a length-prefixed (plain single
// byte, not the 2-bit scheme — values here are always < 253) ASCII
// representation.
func writeDouble(w *bufio.Writer, f float64) error {
	switch {
	case math.IsNaN(f):
		return w.WriteByte(OpExpireTime) // 253
	case math.IsInf(f, 1):
		return w.WriteByte(OpSelectDB) // 254
	case math.IsInf(f, -1):
		return w.WriteByte(OpEOF) // 255
	}
	s := strconv.FormatFloat(f, 'g', 17, 64)
	if err := w.WriteByte(byte(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readDouble(r *bufio.Reader) (float64, error) {
	n, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch n {
	case 253:
		return math.NaN(), nil
	case 254:
		return math.Inf(1), nil
	case 255:
		return math.Inf(-1), nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(string(buf), 64)
}
