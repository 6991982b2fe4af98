package network

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised on requests that do not set their own.
const acceptEncoding = "br, gzip, deflate"

var (
	gzipPool   = sync.Pool{New: func() any { return new(gzip.Reader) }}
	brotliPool = sync.Pool{New: func() any { return brotli.NewReader(nil) }}
)

// CompressionMiddleware is an http.RoundTripper that negotiates compression
// and hands callers a decoded body.
type CompressionMiddleware struct {
	Transport http.RoundTripper
}

// NewCompressionMiddleware wraps transport, or http.DefaultTransport when nil.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{Transport: transport}
}

func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	resp, err := cm.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return resp, nil
}

// decodedBody closes the decoder, returns it to its pool and closes the
// body it reads from.
type decodedBody struct {
	io.Reader
	closeDecoder func() error
	source       io.ReadCloser
}

func (b *decodedBody) Close() error {
	var err error
	if b.closeDecoder != nil {
		err = b.closeDecoder()
		b.closeDecoder = nil
	}
	return errors.Join(err, b.source.Close())
}

// DecompressResponse replaces resp.Body with a decoding reader for each
// Content-Encoding layer, outermost first. On error the body may be partly
// consumed and the response should be discarded.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	var layers []string
	for _, v := range encodings {
		for _, e := range strings.Split(v, ",") {
			layers = append(layers, strings.ToLower(strings.TrimSpace(e)))
		}
	}

	for i := len(layers) - 1; i >= 0; i-- {
		body := resp.Body
		switch layers[i] {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			zr := gzipPool.Get().(*gzip.Reader)
			if err := zr.Reset(body); err != nil {
				gzipPool.Put(zr)
				return fmt.Errorf("gzip: %w", err)
			}
			resp.Body = &decodedBody{Reader: zr, source: body, closeDecoder: func() error {
				err := zr.Close()
				gzipPool.Put(zr)
				return err
			}}
		case "br":
			br := brotliPool.Get().(*brotli.Reader)
			if err := br.Reset(body); err != nil {
				brotliPool.Put(br)
				return fmt.Errorf("brotli: %w", err)
			}
			resp.Body = &decodedBody{Reader: br, source: body, closeDecoder: func() error {
				brotliPool.Put(br)
				return nil
			}}
		case "deflate":
			fr, err := newDeflateReader(body)
			if err != nil {
				return fmt.Errorf("deflate: %w", err)
			}
			resp.Body = &decodedBody{Reader: fr, source: body, closeDecoder: fr.Close}
		default:
			return fmt.Errorf("unsupported Content-Encoding %q", layers[i])
		}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams, since
// servers disagree on what "deflate" means.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if isZlibHeader(header) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader checks the CMF/FLG pair from RFC 1950.
func isZlibHeader(h []byte) bool {
	if len(h) < 2 {
		return false
	}
	return h[0]&0x0f == 8 && (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}
