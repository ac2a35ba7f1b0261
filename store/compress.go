package store

import (
	"context"
	"io"

	"github.com/klauspost/compress/zstd"
)

const compressedSuffix = ".zst"

// Compressed wraps a Store so every artifact is zstd encoded on the way in
// and decoded on the way out.
func Compressed(s Store) Store {
	return &compressedStore{Store: s}
}

type compressedStore struct {
	Store
}

func (c *compressedStore) Put(ctx context.Context, key string, r io.Reader) (Resource, error) {
	pr, pw := io.Pipe()
	go func() {
		enc, err := zstd.NewWriter(pw)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(enc, r); err != nil {
			_ = enc.Close()
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(enc.Close())
	}()
	res, err := c.Store.Put(ctx, key+compressedSuffix, pr)
	// Unblock the encoder if the underlying store stopped reading early.
	_ = pr.Close()
	if err != nil {
		return nil, err
	}
	return &compressedResource{Resource: res}, nil
}

type compressedResource struct {
	Resource
}

func (r *compressedResource) Reader(ctx context.Context) (io.ReadCloser, error) {
	rc, err := r.Resource.Reader(ctx)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &decodingReader{Decoder: dec, underlying: rc}, nil
}

type decodingReader struct {
	*zstd.Decoder
	underlying io.Closer
}

func (d *decodingReader) Close() error {
	d.Decoder.Close()
	return d.underlying.Close()
}
