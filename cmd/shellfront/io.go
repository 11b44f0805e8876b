package main

import (
	"io"
	"os"
	"path/filepath"
)

func readStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func dirOf(path string) string {
	return filepath.Dir(path)
}
