// Package npz reads and writes NumPy .npz archives: a zip container of .npy arrays.
// Only the little-endian numeric dtypes and fixed-width unicode strings used by
// seqwindow archives are supported.
package npz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	DescrFloat32 = "<f4"
	DescrInt32   = "<i4"
	DescrInt8    = "|i1"

	npyMagic     = "\x93NUMPY"
	headerAlign  = 64
	prefixLength = len(npyMagic) + 2 + 2
)

var (
	ErrUnsupported = errors.New("unsupported npy array")

	descrRegex = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	orderRegex = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRegex = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// Array is one decoded .npy array with its raw little-endian payload.
type Array struct {
	Descr string
	Shape []int
	Data  []byte
}

func shapeLiteral(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func writeHeader(w io.Writer, descr string, shape []int) error {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeLiteral(shape))
	// pad with spaces so the data starts on an aligned offset; the header ends with '\n'
	total := prefixLength + len(dict) + 1
	padding := (headerAlign - total%headerAlign) % headerAlign
	header := dict + strings.Repeat(" ", padding) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	buf.WriteString(header)
	_, err := w.Write(buf.Bytes())
	return err
}

func readArray(r io.Reader) (*Array, error) {
	prefix := make([]byte, prefixLength)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, errors.Wrap(err, "failed to read npy prefix")
	}
	if string(prefix[:len(npyMagic)]) != npyMagic {
		return nil, errors.Wrap(ErrUnsupported, "bad magic")
	}
	major := prefix[len(npyMagic)]
	var headerLen int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(prefix[len(npyMagic)+2:]))
	case 2, 3:
		rest := make([]byte, 2)
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, errors.Wrap(err, "failed to read npy header length")
		}
		headerLen = int(binary.LittleEndian.Uint32(append(prefix[len(npyMagic)+2:], rest...)))
	default:
		return nil, errors.Wrapf(ErrUnsupported, "npy version %d", major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "failed to read npy header")
	}
	descr, shape, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read npy payload")
	}
	return &Array{Descr: descr, Shape: shape, Data: data}, nil
}

func parseHeader(header string) (string, []int, error) {
	descr := descrRegex.FindStringSubmatch(header)
	order := orderRegex.FindStringSubmatch(header)
	shape := shapeRegex.FindStringSubmatch(header)
	if descr == nil || order == nil || shape == nil {
		return "", nil, errors.Wrapf(ErrUnsupported, "malformed header %q", header)
	}
	if order[1] == "True" {
		return "", nil, errors.Wrap(ErrUnsupported, "fortran order")
	}
	var dims []int
	for _, part := range strings.Split(shape[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return "", nil, errors.Wrapf(ErrUnsupported, "shape %q", shape[1])
		}
		dims = append(dims, d)
	}
	return descr[1], dims, nil
}

// Len is the number of elements described by the shape.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

func (a *Array) Float32s() ([]float32, error) {
	if a.Descr != DescrFloat32 {
		return nil, errors.Wrapf(ErrUnsupported, "descr %s is not %s", a.Descr, DescrFloat32)
	}
	out := make([]float32, a.Len())
	if len(out) == 0 {
		return out, nil
	}
	return out, binary.Read(bytes.NewReader(a.Data), binary.LittleEndian, out)
}

func (a *Array) Int32s() ([]int32, error) {
	if a.Descr != DescrInt32 {
		return nil, errors.Wrapf(ErrUnsupported, "descr %s is not %s", a.Descr, DescrInt32)
	}
	out := make([]int32, a.Len())
	if len(out) == 0 {
		return out, nil
	}
	return out, binary.Read(bytes.NewReader(a.Data), binary.LittleEndian, out)
}

func (a *Array) Int8s() ([]int8, error) {
	if a.Descr != DescrInt8 && a.Descr != "<i1" {
		return nil, errors.Wrapf(ErrUnsupported, "descr %s is not %s", a.Descr, DescrInt8)
	}
	out := make([]int8, a.Len())
	for i := range out {
		out[i] = int8(a.Data[i])
	}
	return out, nil
}

// Strings decodes a fixed-width '<U' unicode array.
func (a *Array) Strings() ([]string, error) {
	if !strings.HasPrefix(a.Descr, "<U") {
		return nil, errors.Wrapf(ErrUnsupported, "descr %s is not unicode", a.Descr)
	}
	width, err := strconv.Atoi(strings.TrimPrefix(a.Descr, "<U"))
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupported, "descr %s", a.Descr)
	}
	out := make([]string, a.Len())
	for i := range out {
		var sb strings.Builder
		for c := 0; c < width; c++ {
			off := (i*width + c) * 4
			r := rune(binary.LittleEndian.Uint32(a.Data[off:]))
			if r == 0 {
				break
			}
			sb.WriteRune(r)
		}
		out[i] = sb.String()
	}
	return out, nil
}

func unicodeWidth(values []string) int {
	width := 1
	for _, v := range values {
		if n := utf8.RuneCountInString(v); n > width {
			width = n
		}
	}
	return width
}
