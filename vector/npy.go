package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

// readNPY loads a NumPy .npy array of IEEE-754 floats as a row-major
// matrix. 1-D arrays come back as a single row. Only little-endian
// float32/float64 C-order arrays are accepted; these are what the export
// pipeline writes.
func readNPY(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings file: %v", ErrConfig, err)
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("%w: embeddings file %s: truncated header", ErrConfig, path)
	}
	if string(header[:6]) != string(npyMagic) {
		return nil, fmt.Errorf("%w: embeddings file %s is not in npy format", ErrConfig, path)
	}

	major := header[6]

	var headerLen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: embeddings file %s: truncated header", ErrConfig, path)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: embeddings file %s: truncated header", ErrConfig, path)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("%w: embeddings file %s: unsupported npy version %d", ErrConfig, path, major)
	}

	dictBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(f, dictBytes); err != nil {
		return nil, fmt.Errorf("%w: embeddings file %s: truncated header", ErrConfig, path)
	}

	descr, fortran, shape, err := parseNPYHeader(string(dictBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings file %s: %v", ErrConfig, path, err)
	}
	if fortran {
		return nil, fmt.Errorf("%w: embeddings file %s: fortran-ordered arrays are not supported", ErrConfig, path)
	}

	var itemSize int
	switch descr {
	case "<f4", "=f4":
		itemSize = 4
	case "<f8", "=f8":
		itemSize = 8
	default:
		return nil, fmt.Errorf("%w: embeddings file %s: unsupported dtype %q", ErrConfig, path, descr)
	}

	var rows, cols int
	switch len(shape) {
	case 1:
		rows, cols = 1, shape[0]
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("%w: embeddings file %s: expected a 1-D or 2-D array, got %d dimensions", ErrConfig, path, len(shape))
	}

	data := make([]byte, rows*cols*itemSize)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("%w: embeddings file %s: truncated data section", ErrConfig, path)
	}

	matrix := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		for j := 0; j < cols; j++ {
			off := (i*cols + j) * itemSize
			if itemSize == 4 {
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			} else {
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(data[off:])))
			}
		}
		matrix[i] = row
	}

	return matrix, nil
}

// parseNPYHeader picks descr, fortran_order and shape out of the Python
// dict literal that npy headers carry, e.g.
//
//	{'descr': '<f4', 'fortran_order': False, 'shape': (3, 2), }
func parseNPYHeader(dict string) (descr string, fortran bool, shape []int, err error) {
	descr, err = npyHeaderString(dict, "descr")
	if err != nil {
		return "", false, nil, err
	}

	fortran = strings.Contains(npyHeaderValue(dict, "fortran_order"), "True")

	raw := npyHeaderValue(dict, "shape")
	open := strings.Index(raw, "(")
	end := strings.Index(raw, ")")
	if open < 0 || end < open {
		return "", false, nil, fmt.Errorf("malformed shape in npy header")
	}

	for _, part := range strings.Split(raw[open+1:end], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return "", false, nil, fmt.Errorf("malformed shape in npy header")
		}
		shape = append(shape, n)
	}
	if len(shape) == 0 {
		return "", false, nil, fmt.Errorf("scalar npy arrays are not supported")
	}

	return descr, fortran, shape, nil
}

// npyHeaderValue returns the raw text following 'key': up to the next
// top-level comma or the end of the dict.
func npyHeaderValue(dict, key string) string {
	idx := strings.Index(dict, "'"+key+"'")
	if idx < 0 {
		return ""
	}
	rest := dict[idx+len(key)+2:]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return ""
	}
	rest = rest[colon+1:]

	depth := 0
	for i, r := range rest {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth <= 0 {
				return rest[:i]
			}
		case '}':
			return rest[:i]
		}
	}
	return rest
}

func npyHeaderString(dict, key string) (string, error) {
	raw := strings.TrimSpace(npyHeaderValue(dict, key))
	if len(raw) < 2 || raw[0] != '\'' || raw[len(raw)-1] != '\'' {
		return "", fmt.Errorf("missing %s in npy header", key)
	}
	return raw[1 : len(raw)-1], nil
}
