// Package sample provides the bundled example series offered when no file is uploaded.
package sample

import (
	"bytes"
	_ "embed"
	"io"
	"os"
)

// Name is the file name reported for the bundled series
const Name = "sample.csv"

//go:embed sample.csv
var data []byte

// Open returns the csv at path, or the bundled series when path is empty
func Open(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return os.Open(path)
}

// Bytes returns a copy of the bundled series
func Bytes() []byte {
	res := make([]byte, len(data))
	copy(res, data)
	return res
}
