// mhdp-fwpack packs raw instruction and data memory images into a firmware
// bundle the mhdp tool can load.
package main

import (
	"compress/gzip"
	"flag"
	"io"
	"os"

	"github.com/c35s/mhdp/firmware"
)

func main() {

	var (
		imemPath = flag.String("imem", "imem.bin", "instruction memory image")
		dmemPath = flag.String("dmem", "dmem.bin", "data memory image")
		outPath  = flag.String("o", "firmware.cpio.gz", "write the bundle here")
		compress = flag.Bool("z", true, "gzip the bundle")
	)

	flag.Parse()

	img := new(firmware.Image)

	for _, m := range []struct {
		path string
		dst  *[]uint32
	}{
		{*imemPath, &img.IMem},
		{*dmemPath, &img.DMem},
	} {
		b, err := os.ReadFile(m.path)
		if err != nil {
			panic(err)
		}

		if *m.dst, err = firmware.Words(b); err != nil {
			panic(err)
		}
	}

	f, err := os.Create(*outPath)
	if err != nil {
		panic(err)
	}

	var (
		w  io.Writer = f
		zw *gzip.Writer
	)

	if *compress {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := firmware.WriteBundle(w, img); err != nil {
		panic(err)
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			panic(err)
		}
	}

	if err := f.Close(); err != nil {
		panic(err)
	}
}
