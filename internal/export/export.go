// Package export serializes built graphs to JSON files, optionally
// zstd-compressed when the target path ends in .zst.
package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"cfgdb/internal/cfgerr"
	"cfgdb/internal/graph"
)

// WriteGraphJSON writes data as indented JSON to path. A .zst suffix
// enables zstd compression of the JSON stream.
func WriteGraphJSON(path string, data *graph.Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cfgerr.Wrap(cfgerr.IOError, "failed to create output directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return cfgerr.Wrap(cfgerr.IOError, "failed to create graph file", err)
	}
	defer f.Close()

	var w io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return cfgerr.Wrap(cfgerr.IOError, "failed to create zstd writer", err)
		}
		w = enc
	}

	je := json.NewEncoder(w)
	je.SetIndent("", "  ")
	if err := je.Encode(data); err != nil {
		if enc != nil {
			enc.Close()
		}
		return cfgerr.Wrap(cfgerr.IOError, "failed to encode graph", err)
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return cfgerr.Wrap(cfgerr.IOError, "failed to finish zstd stream", err)
		}
	}

	return f.Close()
}

// ReadGraphJSON reads a graph written by WriteGraphJSON, transparently
// decompressing .zst files
func ReadGraphJSON(path string) (*graph.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cfgerr.Wrap(cfgerr.IOError, "failed to open graph file", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, cfgerr.Wrap(cfgerr.IOError, "failed to create zstd reader", err)
		}
		defer dec.Close()
		r = dec
	}

	var data graph.Data
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, cfgerr.Wrap(cfgerr.IOError, "failed to decode graph", err)
	}
	return &data, nil
}
