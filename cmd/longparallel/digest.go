package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/blake2b"

	"github.com/kbukum/longparallel/pipeline"
)

var digestCommand = command{
	name:         "digest",
	usage:        "[flags] [paths...]",
	summary:      "Hash files with BLAKE2b-256 (paths from args or stdin lines).",
	interspersed: true,
	setup: func(fs *pflag.FlagSet) runFunc {
		key := fs.String("key", "", "hex key for keyed BLAKE2b (MAC mode, up to 64 bytes)")
		keepGoing := fs.Bool("keep-going", false, "report unreadable files as rows instead of failing")
		return func(ctx context.Context, a *app, args []string) error {
			k, err := hex.DecodeString(*key)
			if err != nil {
				return usagef("--key: %v", err)
			}
			if len(k) > blake2b.Size {
				return usagef("--key: at most %d bytes, got %d", blake2b.Size, len(k))
			}
			return runDigest(ctx, a, args, k, *keepGoing)
		}
	},
}

type digestRow struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Size   int64  `json:"size" yaml:"size"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r digestRow) columns() []string {
	if r.Error != "" {
		return []string{"ERROR", r.Path, r.Error}
	}
	return []string{r.Digest, strconv.FormatInt(r.Size, 10), r.Path}
}

func runDigest(ctx context.Context, a *app, args []string, key []byte, keepGoing bool) error {
	root, err := query(a, items(args, a.stdin))
	if err != nil {
		return err
	}
	files, err := pipeline.Where(root, notDirectory)
	if err != nil {
		return err
	}
	hashed, err := pipeline.Select(files, func(ctx context.Context, path string) (digestRow, error) {
		sum, size, err := hashFile(ctx, path, key)
		if err != nil {
			if keepGoing {
				return digestRow{Path: path, Error: err.Error()}, nil
			}
			return digestRow{}, err
		}
		return digestRow{Path: path, Digest: sum, Size: size}, nil
	})
	if err != nil {
		return err
	}
	return emit(ctx, a, hashed)
}

// notDirectory drops directories. Missing paths pass so that hashing
// reports them.
func notDirectory(path string) bool {
	fi, err := os.Stat(path)
	return err != nil || !fi.IsDir()
}

func hashFile(ctx context.Context, path string, key []byte) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var h hash.Hash
	if h, err = blake2b.New256(key); err != nil {
		return "", 0, fmt.Errorf("blake2b: %w", err)
	}
	n, err := io.Copy(h, &ctxReader{ctx: ctx, r: f})
	if err != nil {
		return "", n, fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
