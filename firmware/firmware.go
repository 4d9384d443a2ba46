// Package firmware reads and writes the transmitter microcontroller's
// firmware bundle: a cpio archive, optionally gzipped, holding the
// instruction and data memory images as little-endian words.
package firmware

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/cavaliergopher/cpio"
)

// Member names inside a bundle.
const (
	IMemName = "imem.bin"
	DMemName = "dmem.bin"
)

// MaxImageSize bounds each memory image.
const MaxImageSize = 0x10000

var ErrBundle = errors.New("firmware: bad bundle")

// Image holds the words to write into instruction and data memory.
type Image struct {
	IMem []uint32
	DMem []uint32
}

var le = binary.LittleEndian

// ReadBundle reads an image from a cpio archive. A gzip stream is
// recognized by its magic and decompressed first.
func ReadBundle(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBundle, err)
		}

		defer zr.Close()
		r = zr
	} else {
		r = br
	}

	var (
		img  Image
		seen = map[string]bool{}
		cr   = cpio.NewReader(r)
	)

	for {
		hdr, err := cr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBundle, err)
		}

		var dst *[]uint32
		switch path.Base(hdr.Name) {
		case IMemName:
			dst = &img.IMem
		case DMemName:
			dst = &img.DMem
		default:
			continue
		}

		if hdr.Size%4 != 0 || hdr.Size > MaxImageSize {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrBundle, hdr.Name, hdr.Size)
		}

		b, err := io.ReadAll(cr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBundle, hdr.Name, err)
		}

		*dst = words(b)
		seen[path.Base(hdr.Name)] = true
	}

	for _, name := range []string{IMemName, DMemName} {
		if !seen[name] {
			return nil, fmt.Errorf("%w: missing %s", ErrBundle, name)
		}
	}

	return &img, nil
}

// WriteBundle writes img as an uncompressed cpio archive.
func WriteBundle(w io.Writer, img *Image) error {
	cw := cpio.NewWriter(w)

	for _, m := range []struct {
		name  string
		words []uint32
	}{
		{IMemName, img.IMem},
		{DMemName, img.DMem},
	} {
		b := Bytes(m.words)

		err := cw.WriteHeader(&cpio.Header{
			Name: m.name,
			Mode: 0644,
			Size: int64(len(b)),
		})

		if err != nil {
			return err
		}

		if _, err := cw.Write(b); err != nil {
			return err
		}
	}

	return cw.Close()
}

// Words converts a raw memory image to words. The length must be a
// multiple of 4.
func Words(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: image of %d bytes", ErrBundle, len(b))
	}

	return words(b), nil
}

// Bytes is the inverse of Words.
func Bytes(ww []uint32) []byte {
	b := make([]byte, len(ww)*4)
	for i, w := range ww {
		le.PutUint32(b[i*4:], w)
	}

	return b
}

func words(b []byte) []uint32 {
	ww := make([]uint32, len(b)/4)
	for i := range ww {
		ww[i] = le.Uint32(b[i*4:])
	}

	return ww
}

// Size returns the number of bytes the image occupies in each memory.
func (img *Image) Size() (imem, dmem int) {
	return len(img.IMem) * 4, len(img.DMem) * 4
}
