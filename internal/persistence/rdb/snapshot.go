package rdb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/exp/slices"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/object"
)

// Save writes a full snapshot of store to path: magic header, one
// SELECTDB marker per non-empty database followed by its records, then
// the EOF marker — atomically, per spec.md §4.5.1 ("written to
// temp-<pid>.rdb and renamed over the target only after fsync succeeds;
// any failure removes the temp file").
func Save(path string, store *keyspace.Store, compress bool, now time.Time) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, fmt.Sprintf("temp-%d-*.rdb", os.Getpid()))
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if _, err = w.WriteString(Magic); err != nil {
		return err
	}

	for i := 0; i < store.Count(); i++ {
		db, derr := store.DB(i)
		if derr != nil {
			return derr
		}
		keys := db.Keys(now)
		if len(keys) == 0 {
			continue
		}
		slices.Sort(keys)

		if err = w.WriteByte(OpSelectDB); err != nil {
			return err
		}
		if err = writeLength(w, uint64(i)); err != nil {
			return err
		}

		for _, key := range keys {
			v, ok := db.Lookup(key, now)
			if !ok {
				continue
			}
			if exp, hasTTL := db.ExpireAt(key, now); hasTTL {
				if err = w.WriteByte(OpExpireTime); err != nil {
					return err
				}
				var buf [8]byte
				putUint64LE(buf[:], uint64(exp))
				if _, err = w.Write(buf[:]); err != nil {
					return err
				}
			}
			if err = writeValue(w, key, v, compress); err != nil {
				return err
			}
		}
	}

	if err = w.WriteByte(OpEOF); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}
	return nil
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func writeValue(w *bufio.Writer, key string, v object.Value, compress bool) error {
	var typeByte byte
	switch v.Kind() {
	case object.KindString:
		typeByte = TypeString
	case object.KindList:
		typeByte = TypeList
	case object.KindSet:
		typeByte = TypeSet
	case object.KindScoreSet:
		typeByte = TypeScoreSet
	default:
		return fmt.Errorf("rdb: unknown value kind %v", v.Kind())
	}
	if err := w.WriteByte(typeByte); err != nil {
		return err
	}
	if err := writeString(w, []byte(key), compress); err != nil {
		return err
	}

	switch val := v.(type) {
	case *object.String:
		return writeString(w, val.Bytes(), compress)
	case *object.List:
		items := val.ToSlice()
		if err := writeLength(w, uint64(len(items))); err != nil {
			return err
		}
		for _, s := range items {
			if err := writeString(w, s.Bytes(), compress); err != nil {
				return err
			}
		}
		return nil
	case *object.Set:
		members := val.Members()
		slices.Sort(members)
		if err := writeLength(w, uint64(len(members))); err != nil {
			return err
		}
		for _, m := range members {
			if err := writeString(w, []byte(m), compress); err != nil {
				return err
			}
		}
		return nil
	case *object.ScoreSet:
		entries := val.RangeByRank(0, -1)
		if err := writeLength(w, uint64(len(entries))); err != nil {
			return err
		}
		for _, m := range entries {
			if err := writeString(w, []byte(m.Name), compress); err != nil {
				return err
			}
			if err := writeDouble(w, m.Score); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("rdb: unhandled value type %T", v)
	}
}

// Load reads a snapshot file into store, replacing each database's
// contents as its SELECTDB section is parsed. store is flushed first, so
// a partially-read file never leaves a mix of old and new state beyond
// what was parsed before an error, matching spec.md §7's "unrecoverable
// snapshot-load corruption" being a startup-fatal condition the caller
// (internal/server) is responsible for treating as such.
func Load(path string, store *keyspace.Store, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(Magic))
	if _, err := readFullBuf(r, magic); err != nil {
		return err
	}
	if string(magic) != Magic {
		return fmt.Errorf("rdb: bad magic %q", magic)
	}

	store.FlushAll()
	dbIndex := 0

	for {
		opcode, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch opcode {
		case OpEOF:
			return nil
		case OpSelectDB:
			n, _, err := readLength(r)
			if err != nil {
				return err
			}
			dbIndex = int(n)
		case OpExpireTime:
			var buf [8]byte
			if _, err := readFullBuf(r, buf[:]); err != nil {
				return err
			}
			exp := int64(getUint64LE(buf[:]))
			typeByte, err := r.ReadByte()
			if err != nil {
				return err
			}
			if err := readRecord(r, store, dbIndex, typeByte, &exp, now); err != nil {
				return err
			}
		default:
			if err := readRecord(r, store, dbIndex, opcode, nil, now); err != nil {
				return err
			}
		}
	}
}

func readRecord(r *bufio.Reader, store *keyspace.Store, dbIndex int, typeByte byte, expireAt *int64, now time.Time) error {
	keyBytes, err := readString(r)
	if err != nil {
		return err
	}
	key := string(keyBytes)

	db, err := store.DB(dbIndex)
	if err != nil {
		return err
	}

	value, err := readValue(r, typeByte)
	if err != nil {
		return err
	}
	db.Set(key, value)
	if expireAt != nil {
		db.Expire(key, time.Unix(*expireAt, 0), now)
	}
	return nil
}

func readValue(r *bufio.Reader, typeByte byte) (object.Value, error) {
	switch typeByte {
	case TypeString:
		b, err := readString(r)
		if err != nil {
			return nil, err
		}
		return object.NewString(b), nil
	case TypeList:
		n, _, err := readLength(r)
		if err != nil {
			return nil, err
		}
		l := object.NewList()
		for i := uint64(0); i < n; i++ {
			b, err := readString(r)
			if err != nil {
				return nil, err
			}
			l.PushRight(object.NewString(b))
		}
		return l, nil
	case TypeSet:
		n, _, err := readLength(r)
		if err != nil {
			return nil, err
		}
		s := object.NewSet()
		for i := uint64(0); i < n; i++ {
			b, err := readString(r)
			if err != nil {
				return nil, err
			}
			s.Add(string(b))
		}
		return s, nil
	case TypeScoreSet:
		n, _, err := readLength(r)
		if err != nil {
			return nil, err
		}
		z := object.NewScoreSet()
		for i := uint64(0); i < n; i++ {
			b, err := readString(r)
			if err != nil {
				return nil, err
			}
			score, err := readDouble(r)
			if err != nil {
				return nil, err
			}
			z.Add(string(b), score)
		}
		return z, nil
	default:
		return nil, fmt.Errorf("rdb: unknown value type %d", typeByte)
	}
}

func readFullBuf(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
