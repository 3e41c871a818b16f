// matrix.go - Row-major trace storage and its on-disk encodings.
//
// Binary layout (little-endian):
//
//	magic "SBTR" | width uint32 | height uint32 | width*height uint64 values | blake3-256 of all preceding bytes

package trace

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/consensys/gnark-crypto/field/goldilocks"
	"github.com/zeebo/blake3"

	"sealedbid/internal/columns"
)

var (
	ErrChecksum = errors.New("trace: checksum mismatch")
	ErrFormat   = errors.New("trace: malformed matrix")
)

var magic = [4]byte{'S', 'B', 'T', 'R'}

const (
	// maxHeight bounds the height accepted when decoding.
	maxHeight = 1 << 24
	// fieldModulus is the Goldilocks prime 2^64 - 2^32 + 1.
	fieldModulus = 0xFFFFFFFF00000001
)

// Matrix is a row-major NumCols-wide matrix of field elements.
type Matrix struct {
	Width  int
	Values []goldilocks.Element
}

// NewMatrix allocates a zero matrix of the given height.
func NewMatrix(height int) *Matrix {
	return &Matrix{
		Width:  columns.NumCols,
		Values: make([]goldilocks.Element, height*columns.NumCols),
	}
}

// Height returns the number of rows.
func (m *Matrix) Height() int {
	return len(m.Values) / m.Width
}

// Row returns the flat values of row i, aliasing the matrix.
func (m *Matrix) Row(i int) []goldilocks.Element {
	return m.Values[i*m.Width : (i+1)*m.Width]
}

// View returns a named copy of row i.
func (m *Matrix) View(i int) Row {
	r, err := columns.FromSlice(m.Row(i))
	if err != nil {
		// Width is fixed at construction.
		panic(err)
	}
	return r
}

// SetRow overwrites row i.
func (m *Matrix) SetRow(i int, r *Row) {
	r.AppendTo(m.Row(i)[:0])
}

// Set overwrites a single cell.
func (m *Matrix) Set(row, col int, v goldilocks.Element) {
	m.Values[row*m.Width+col] = v
}

// WriteTo writes the binary encoding of m.
func (m *Matrix) WriteTo(w io.Writer) (int64, error) {
	h := blake3.New()
	bw := bufio.NewWriter(io.MultiWriter(w, h))

	var hdr [12]byte
	copy(hdr[:4], magic[:])
	binary.LittleEndian.PutUint32(hdr[4:], uint32(m.Width))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(m.Height()))
	if _, err := bw.Write(hdr[:]); err != nil {
		return 0, err
	}
	var buf [8]byte
	for i := range m.Values {
		binary.LittleEndian.PutUint64(buf[:], m.Values[i].Uint64())
		if _, err := bw.Write(buf[:]); err != nil {
			return 0, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	sum := h.Sum(nil)
	if _, err := w.Write(sum); err != nil {
		return 0, err
	}
	return int64(len(hdr) + 8*len(m.Values) + len(sum)), nil
}

// ReadMatrix decodes a matrix written by WriteTo and verifies its checksum.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}
	if len(data) < 12+32 || !bytes.Equal(data[:4], magic[:]) {
		return nil, ErrFormat
	}
	body, sum := data[:len(data)-32], data[len(data)-32:]
	want := blake3.Sum256(body)
	if !bytes.Equal(sum, want[:]) {
		return nil, ErrChecksum
	}

	width := int(binary.LittleEndian.Uint32(body[4:]))
	height := int(binary.LittleEndian.Uint32(body[8:]))
	if width != columns.NumCols {
		return nil, fmt.Errorf("%w: width %d", columns.ErrWidth, width)
	}
	if height > maxHeight || len(body) != 12+8*width*height {
		return nil, fmt.Errorf("%w: height %d, %d bytes", ErrFormat, height, len(body))
	}

	m := NewMatrix(height)
	values := body[12:]
	for i := range m.Values {
		v := binary.LittleEndian.Uint64(values[8*i:])
		if v >= fieldModulus {
			return nil, fmt.Errorf("%w: non-canonical value at %d", ErrFormat, i)
		}
		m.Values[i].SetUint64(v)
	}
	return m, nil
}

// WriteCSV writes the matrix with a header of column names.
func (m *Matrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns.Names()); err != nil {
		return err
	}
	record := make([]string, m.Width)
	for i := 0; i < m.Height(); i++ {
		for j, v := range m.Row(i) {
			record[j] = strconv.FormatUint(v.Uint64(), 10)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
