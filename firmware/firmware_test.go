package firmware_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"testing"

	"github.com/c35s/mhdp/firmware"
	"github.com/cavaliergopher/cpio"
	"github.com/google/go-cmp/cmp"
)

var testImage = &firmware.Image{
	IMem: []uint32{0xdeadbeef, 0x00000001, 0x12345678},
	DMem: []uint32{0xcafef00d},
}

func TestBundleRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := firmware.WriteBundle(&buf, testImage); err != nil {
		t.Fatal(err)
	}

	img, err := firmware.ReadBundle(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(testImage, img); diff != "" {
		t.Errorf("image differs: %s", diff)
	}
}

func TestReadBundleGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)

	if err := firmware.WriteBundle(zw, testImage); err != nil {
		t.Fatal(err)
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	img, err := firmware.ReadBundle(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(testImage, img); diff != "" {
		t.Errorf("image differs: %s", diff)
	}
}

func writeArchive(t *testing.T, files map[string][]byte) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	cw := cpio.NewWriter(&buf)

	for name, b := range files {
		if err := cw.WriteHeader(&cpio.Header{Name: name, Mode: 0644, Size: int64(len(b))}); err != nil {
			t.Fatal(err)
		}

		if _, err := cw.Write(b); err != nil {
			t.Fatal(err)
		}
	}

	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	return &buf
}

func TestReadBundleMissingMember(t *testing.T) {
	buf := writeArchive(t, map[string][]byte{
		firmware.IMemName: {1, 2, 3, 4},
	})

	if _, err := firmware.ReadBundle(buf); !errors.Is(err, firmware.ErrBundle) {
		t.Errorf("error isn't ErrBundle: %v", err)
	}
}

func TestReadBundleOddSize(t *testing.T) {
	buf := writeArchive(t, map[string][]byte{
		firmware.IMemName: {1, 2, 3},
		firmware.DMemName: {1, 2, 3, 4},
	})

	if _, err := firmware.ReadBundle(buf); !errors.Is(err, firmware.ErrBundle) {
		t.Errorf("error isn't ErrBundle: %v", err)
	}
}

func TestReadBundleIgnoresOtherMembers(t *testing.T) {
	buf := writeArchive(t, map[string][]byte{
		"fw/" + firmware.IMemName: {0x78, 0x56, 0x34, 0x12},
		firmware.DMemName:         {},
		"README":                  []byte("hello"),
	})

	img, err := firmware.ReadBundle(buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]uint32{0x12345678}, img.IMem); diff != "" {
		t.Errorf("imem differs: %s", diff)
	}
}

func TestWords(t *testing.T) {
	if _, err := firmware.Words([]byte{1, 2}); !errors.Is(err, firmware.ErrBundle) {
		t.Errorf("error isn't ErrBundle: %v", err)
	}

	ww, err := firmware.Words(firmware.Bytes([]uint32{7, 8}))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]uint32{7, 8}, ww); diff != "" {
		t.Errorf("words differ: %s", diff)
	}
}
