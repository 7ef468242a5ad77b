package updater

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
)

// maxBinarySize caps how much we will extract from a release archive.
const maxBinarySize = 256 << 20

// extractBinary streams a gzipped tarball and returns the bytes of the
// promptops executable inside it.
func extractBinary(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("updater: opening archive: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("updater: archive does not contain a promptops binary")
		}
		if err != nil {
			return nil, fmt.Errorf("updater: reading archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != "promptops" {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxBinarySize))
		if err != nil {
			return nil, fmt.Errorf("updater: extracting binary: %w", err)
		}
		return data, nil
	}
}
