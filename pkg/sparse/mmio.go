package sparse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// CompressedSuffix marks Matrix Market files stored as snappy streams.
const CompressedSuffix = ".sz"

const mmBanner = "%%MatrixMarket"

// maxPrealloc caps the entry slice sized from an untrusted header.
const maxPrealloc = 1 << 20

// ReadMatrixMarket parses a coordinate-format Matrix Market stream.
//
// Supported fields are real, integer and pattern (pattern entries get value 1).
// Symmetry "symmetric" mirrors every off-diagonal entry; "general" keeps the
// entries as written.
func ReadMatrixMarket(r io.Reader) (*Matrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}
	header := strings.Fields(strings.ToLower(sc.Text()))
	if len(header) != 5 || header[0] != strings.ToLower(mmBanner) || header[1] != "matrix" {
		return nil, fmt.Errorf("%w: bad banner %q", ErrFormat, sc.Text())
	}
	if header[2] != "coordinate" {
		return nil, fmt.Errorf("%w: only coordinate format is supported, got %q", ErrFormat, header[2])
	}
	field, symmetry := header[3], header[4]
	switch field {
	case "real", "integer", "pattern":
	default:
		return nil, fmt.Errorf("%w: unsupported field %q", ErrFormat, field)
	}
	switch symmetry {
	case "general", "symmetric":
	default:
		return nil, fmt.Errorf("%w: unsupported symmetry %q", ErrFormat, symmetry)
	}

	var rows, cols, nnz, read int
	sized := false
	var entries []Triplet
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		parts := strings.Fields(text)
		if !sized {
			if len(parts) != 3 {
				return nil, fmt.Errorf("%w: line %d: size line needs 3 fields", ErrFormat, line)
			}
			var err error
			if rows, err = strconv.Atoi(parts[0]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
			}
			if cols, err = strconv.Atoi(parts[1]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
			}
			if nnz, err = strconv.Atoi(parts[2]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
			}
			if rows < 0 || cols < 0 || nnz < 0 {
				return nil, fmt.Errorf("%w: line %d: negative size %d %d %d", ErrFormat, line, rows, cols, nnz)
			}
			entries = make([]Triplet, 0, min(nnz, maxPrealloc))
			sized = true
			continue
		}

		if read == nnz {
			return nil, fmt.Errorf("%w: line %d: more than the %d declared entries", ErrFormat, line, nnz)
		}
		read++

		want := 3
		if field == "pattern" {
			want = 2
		}
		if len(parts) < want {
			return nil, fmt.Errorf("%w: line %d: expected %d fields", ErrFormat, line, want)
		}
		i, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}
		j, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}
		v := 1.0
		if field != "pattern" {
			if v, err = strconv.ParseFloat(parts[2], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
			}
		}
		entries = append(entries, Triplet{Row: i - 1, Col: j - 1, Value: v})
		if symmetry == "symmetric" && i != j {
			entries = append(entries, Triplet{Row: j - 1, Col: i - 1, Value: v})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sized {
		return nil, fmt.Errorf("%w: missing size line", ErrFormat)
	}
	if read != nnz {
		return nil, fmt.Errorf("%w: %d entries declared, %d read", ErrFormat, nnz, read)
	}
	return FromTriplets(rows, cols, entries)
}

// WriteMatrixMarket writes m as a general real coordinate matrix.
func WriteMatrixMarket(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s matrix coordinate real general\n", mmBanner)
	fmt.Fprintf(bw, "%d %d %d\n", m.Rows, m.Cols, m.NNZ())
	for j := 0; j < m.Cols; j++ {
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			fmt.Fprintf(bw, "%d %d %s\n", m.RowIdx[k]+1, j+1, strconv.FormatFloat(m.Values[k], 'g', -1, 64))
		}
	}
	return bw.Flush()
}

// ReadFile loads a Matrix Market file, decompressing it when the name ends
// in CompressedSuffix. The file is memory-mapped for the duration of the parse.
func ReadFile(path string) (*Matrix, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer ra.Close()

	var r io.Reader = io.NewSectionReader(ra, 0, int64(ra.Len()))
	if strings.HasSuffix(path, CompressedSuffix) {
		r = snappy.NewReader(r)
	}
	m, err := ReadMatrixMarket(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

// WriteFile stores m as Matrix Market, snappy-compressed when the name ends
// in CompressedSuffix.
func WriteFile(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, CompressedSuffix) {
		sw := snappy.NewBufferedWriter(f)
		if err := WriteMatrixMarket(sw, m); err != nil {
			f.Close()
			return err
		}
		if err := sw.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if err := WriteMatrixMarket(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
