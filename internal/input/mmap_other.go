//go:build !unix

package input

import (
	"io"
	"os"
)

func mapFile(f *os.File, _ int64) ([]byte, func() error, error) {
	data, err := io.ReadAll(f)
	return data, nil, err
}
