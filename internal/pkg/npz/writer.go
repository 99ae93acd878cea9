package npz

import (
	"archive/zip"
	"encoding/binary"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Writer streams arrays into a deflate-compressed .npz container. Entries carry
// no timestamps, so identical arrays produce byte-identical archives.
type Writer struct {
	zw *zip.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

func (w *Writer) entry(name string, descr string, shape []int) (io.Writer, error) {
	ew, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   name + ".npy",
		Method: zip.Deflate,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create entry %s", name)
	}
	if err := writeHeader(ew, descr, shape); err != nil {
		return nil, errors.Wrapf(err, "failed to write header of %s", name)
	}
	return ew, nil
}

func (w *Writer) WriteFloat32(name string, shape []int, data []float32) error {
	ew, err := w.entry(name, DescrFloat32, shape)
	if err != nil || len(data) == 0 {
		return err
	}
	return errors.Wrapf(binary.Write(ew, binary.LittleEndian, data), "failed to write %s", name)
}

func (w *Writer) WriteInt32(name string, shape []int, data []int32) error {
	ew, err := w.entry(name, DescrInt32, shape)
	if err != nil || len(data) == 0 {
		return err
	}
	return errors.Wrapf(binary.Write(ew, binary.LittleEndian, data), "failed to write %s", name)
}

func (w *Writer) WriteInt8(name string, shape []int, data []int8) error {
	ew, err := w.entry(name, DescrInt8, shape)
	if err != nil || len(data) == 0 {
		return err
	}
	return errors.Wrapf(binary.Write(ew, binary.LittleEndian, data), "failed to write %s", name)
}

// WriteStrings stores values as a 1-D fixed-width unicode array ('<U'), which
// NumPy loads without pickle support.
func (w *Writer) WriteStrings(name string, values []string) error {
	width := unicodeWidth(values)
	ew, err := w.entry(name, "<U"+strconv.Itoa(width), []int{len(values)})
	if err != nil {
		return err
	}
	buf := make([]uint32, width)
	for _, v := range values {
		for i := range buf {
			buf[i] = 0
		}
		i := 0
		for _, r := range v {
			buf[i] = uint32(r)
			i++
		}
		if err := binary.Write(ew, binary.LittleEndian, buf); err != nil {
			return errors.Wrapf(err, "failed to write %s", name)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	return w.zw.Close()
}

// Reader holds every array of an archive, decoded eagerly.
type Reader struct {
	names  []string
	arrays map[string]*Array
}

func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open zip container")
	}
	out := &Reader{arrays: make(map[string]*Array, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open entry %s", f.Name)
		}
		arr, err := readArray(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode entry %s", f.Name)
		}
		name := trimNpy(f.Name)
		out.names = append(out.names, name)
		out.arrays[name] = arr
	}
	return out, nil
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open archive")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat archive")
	}
	return NewReader(f, info.Size())
}

// Names returns array names in archive order.
func (r *Reader) Names() []string {
	return r.names
}

func (r *Reader) Array(name string) (*Array, bool) {
	arr, ok := r.arrays[name]
	return arr, ok
}

func trimNpy(name string) string {
	if len(name) > 4 && name[len(name)-4:] == ".npy" {
		return name[:len(name)-4]
	}
	return name
}
