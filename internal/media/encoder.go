// Package media turns uploaded product images into base64 data URIs.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
)

// ErrTooLarge the upload exceeds the configured limit
var ErrTooLarge = errors.New("image too large")

// Encoder runs conversions on a bounded worker pool so a burst of large
// uploads cannot occupy every request goroutine with base64 work.
type Encoder struct {
	pool    *ants.Pool
	maxSize int64
}

// NewEncoder creates an encoder with workers goroutines. maxSize <= 0 disables the size check.
func NewEncoder(workers int, maxSize int64) (*Encoder, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create image worker pool")
	}
	return &Encoder{pool: pool, maxSize: maxSize}, nil
}

func (e *Encoder) Release() {
	e.pool.Release()
}

type result struct {
	uri string
	err error
}

// DataURI reads the uploaded file and returns it as data:<mime>;base64,<payload>
func (e *Encoder) DataURI(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", errors.New("no file")
	}
	if e.maxSize > 0 && fh.Size > e.maxSize {
		return "", errors.Wrapf(ErrTooLarge, "%s is %d bytes", fh.Filename, fh.Size)
	}

	done := make(chan result, 1)
	err := e.pool.Submit(func() {
		f, err := fh.Open()
		if err != nil {
			done <- result{err: errors.Wrap(err, "open upload")}
			return
		}
		defer f.Close()
		uri, err := Encode(f, fh.Header.Get("Content-Type"))
		done <- result{uri: uri, err: err}
	})
	if err != nil {
		return "", errors.Wrap(err, "schedule image conversion")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.uri, r.err
	}
}

// Encode reads r fully and builds a data URI. When contentType is empty or
// generic it is sniffed from the content.
func Encode(r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read image")
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	var buf bytes.Buffer
	buf.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	buf.WriteString("data:")
	buf.WriteString(contentType)
	buf.WriteString(";base64,")
	buf.WriteString(base64.StdEncoding.EncodeToString(data))
	return buf.String(), nil
}
