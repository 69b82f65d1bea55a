// Package importer streams a portable-notation archive into a freshly
// created game database: decompress if needed, parse each game, derive its
// header metadata and encoded move blob, and flush to the store in
// transactional batches.
package importer

import (
	"bufio"
	"compress/bzip2"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// OpenArchive opens path and wraps it in a decompressing reader chosen by
// its extension. An unrecognized extension is read as plain text — PGN
// files commonly carry no compression suffix at all, so this is not an
// error by itself.
func OpenArchive(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(strings.ToLower(path), ".bz2"):
		return &readCloser{r: bzip2.NewReader(bufio.NewReaderSize(f, 64*1024)), under: f}, nil

	case strings.HasSuffix(strings.ToLower(path), ".zst"):
		dec, err := zstd.NewReader(bufio.NewReaderSize(f, 64*1024))
		if err != nil {
			f.Close()
			return nil, err
		}
		return &zstdReadCloser{dec: dec, under: f}, nil

	default:
		return f, nil
	}
}

// readCloser adapts a plain io.Reader (bzip2 has no Close) to io.ReadCloser
// by closing the underlying file it was built from.
type readCloser struct {
	r     io.Reader
	under io.Closer
}

func (rc *readCloser) Read(p []byte) (int, error) { return rc.r.Read(p) }
func (rc *readCloser) Close() error                { return rc.under.Close() }

type zstdReadCloser struct {
	dec   *zstd.Decoder
	under io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }
func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.under.Close()
}
