// Command download fetches the Python interpreter module for go generate.
// An existing output file is left alone.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	var (
		url    = flag.String("url", "", "URL to fetch")
		output = flag.String("out", "", "Output file")
		sum    = flag.String("sha256", "", "Expected SHA-256 of the download (optional)")
	)
	flag.Parse()

	if *url == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "usage: download -url <url> -out <file> [-sha256 <hex>]")
		os.Exit(1)
	}
	if _, err := os.Stat(*output); err == nil {
		return
	}
	if err := fetch(*url, *output, *sum); err != nil {
		fmt.Fprintf(os.Stderr, "download %s: %v\n", *url, err)
		os.Exit(1)
	}
}

// fetch writes url to a temporary file next to output and renames it into
// place once the checksum, if any, matches.
func fetch(url, output, want string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if want != "" {
		if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, want) {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return os.Rename(tmp.Name(), output)
}
