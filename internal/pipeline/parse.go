package pipeline

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/codebase-index/internal/discover"
	"github.com/DeusData/codebase-index/internal/extract"
	"github.com/DeusData/codebase-index/internal/infra"
	"github.com/DeusData/codebase-index/internal/lang"
)

// parseResult is the outcome of reading and extracting one file. It holds
// data only; nothing here touches the store.
type parseResult struct {
	File    discover.FileInfo
	Hash    string
	Content string // "" when the file is not valid text
	Touched bool   // content hash equals the stored one
	Record  *extract.FileRecord
	Config  *infra.Result
	Err     error
}

// parseAll extracts files concurrently, bounded by the pipeline's concurrency.
func (p *Pipeline) parseAll(ctx context.Context, files []discover.FileInfo, hashes map[string]string) ([]*parseResult, error) {
	results := make([]*parseResult, len(files))
	workers := min(p.concurrency(), len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.parseFile(f, hashes[f.Path])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseFile never fails: read and extraction errors, panics included, end up
// in Err and the file is written as a degraded record.
func (p *Pipeline) parseFile(f discover.FileInfo, storedHash string) (r *parseResult) {
	r = &parseResult{File: f}
	defer func() {
		if rec := recover(); rec != nil {
			r.Record, r.Config = nil, nil
			r.Err = fmt.Errorf("extract panic: %v", rec)
		}
	}()

	src, err := os.ReadFile(f.Path)
	if err != nil {
		r.Err = err
		return r
	}
	r.Hash = contentHash(src)
	if storedHash != "" && storedHash == r.Hash {
		r.Touched = true
		return r
	}
	if isText(src) {
		r.Content = string(src)
	}

	if f.Language == lang.Config {
		r.Config, r.Err = infra.Extract(f.Path, src)
		return r
	}
	r.Record, r.Err = p.Extractor.Extract(f.Path, src)
	return r
}

func contentHash(src []byte) string {
	sum := xxh3.Hash128(src).Bytes()
	return hex.EncodeToString(sum[:])
}

func isText(src []byte) bool {
	return bytes.IndexByte(src, 0) < 0 && utf8.Valid(src)
}
