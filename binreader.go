package b2extract

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"
)

// binReader provides little-endian scalar and string reads against an io.ReaderAt, the way the
// teacher's tableReader reads fixed-size fields out of a cached buffer rather than through unsafe
// pointer casts.
type binReader struct {
	r io.ReaderAt
}

func newBinReader(r io.ReaderAt) *binReader {
	return &binReader{r: r}
}

func (b *binReader) readAt(off int64, n int) ([]byte, error) {
	if off < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", ErrEntryOutOfRange, off)
	}
	buf := make([]byte, n)
	if _, err := b.r.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *binReader) u32(off int64) (uint32, error) {
	buf, err := b.readAt(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (b *binReader) i32(off int64) (int32, error) {
	v, err := b.u32(off)
	return int32(v), err
}

func (b *binReader) u64(off int64) (uint64, error) {
	buf, err := b.readAt(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (b *binReader) i64(off int64) (int64, error) {
	v, err := b.u64(off)
	return int64(v), err
}

// nulString reads a NUL-terminated UTF-8 string starting at off. Bails out past maxLen bytes to
// avoid runaway reads on corrupt offsets.
func (b *binReader) nulString(off int64, maxLen int) (string, error) {
	if off < 0 {
		return "", fmt.Errorf("%w: negative string offset", ErrEntryOutOfRange)
	}
	const chunk = 64
	buf := make([]byte, 0, chunk)
	scratch := make([]byte, chunk)
	pos := off
	for len(buf) < maxLen {
		n, err := b.r.ReadAt(scratch, pos)
		if n == 0 && err != nil {
			if len(buf) > 0 {
				break
			}
			return "", err
		}
		for i := 0; i < n; i++ {
			if scratch[i] == 0 {
				return string(buf), nil
			}
			buf = append(buf, scratch[i])
		}
		pos += int64(n)
		if err != nil {
			break
		}
	}
	return string(buf), nil
}

// lengthPrefixedString implements the asset-header string convention described in the path
// recovery spec: a signed 32-bit length prefix whose sign selects the encoding. Positive values
// count UTF-8 code units; negative values count UTF-16 code units (magnitude = count), and a
// trailing NUL is trimmed. Kept as the single implementation so the header parser and name-table
// scanner never duplicate the convention.
func lengthPrefixedString(r io.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if n > 0 {
		if n > 1<<20 {
			return "", fmt.Errorf("%w: string length %d unreasonable", ErrMalformedEntry, n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		if len(buf) > 0 && buf[len(buf)-1] == 0 {
			buf = buf[:len(buf)-1]
		}
		return string(buf), nil
	}

	count := -int(n)
	if count > 1<<20 {
		return "", fmt.Errorf("%w: string length %d unreasonable", ErrMalformedEntry, n)
	}
	units := make([]uint16, count)
	if err := binary.Read(r, binary.LittleEndian, &units); err != nil {
		return "", err
	}
	if len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return string(utf16.Decode(units)), nil
}
