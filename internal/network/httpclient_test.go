package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/marquee/internal/config"
)

const payload = `[{"id":1,"title":"Wicked"},{"id":2,"title":"Dune"}]`

func TestNewTransportSizesPoolForUsers(t *testing.T) {
	transport := NewTransport(Options{Users: 64, Insecure: true, Logger: zaptest.NewLogger(t)})
	assert.Equal(t, 64, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 128, transport.MaxIdleConns)
	assert.Equal(t, defaultTimeout, transport.ResponseHeaderTimeout)
	assert.True(t, transport.DisableCompression, "decoding belongs to the middleware")
	require.NotNil(t, transport.TLSClientConfig)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	assert.Contains(t, transport.TLSClientConfig.NextProtos, "h2")

	small := NewTransport(Options{Users: 2})
	assert.Equal(t, MinIdlePerHost, small.MaxIdleConnsPerHost)
}

func TestNewTransportHTTP1Only(t *testing.T) {
	transport := NewTransport(Options{HTTP1Only: true})
	assert.Equal(t, []string{"http/1.1"}, transport.TLSClientConfig.NextProtos)
	assert.False(t, transport.ForceAttemptHTTP2)
}

func TestOptionsFor(t *testing.T) {
	load := config.NewDefaultConfig().Load()
	load.Users = 50
	load.RequestTimeout = 3 * time.Second

	client := NewClient(OptionsFor(load, nil))
	assert.Equal(t, 3*time.Second, client.Timeout)
	mw, ok := client.Transport.(*CompressionMiddleware)
	require.True(t, ok)
	assert.Equal(t, 50, mw.Transport.(*http.Transport).MaxIdleConnsPerHost)
}

func TestNewClient(t *testing.T) {
	client := NewClient(Options{})
	assert.Equal(t, defaultTimeout, client.Timeout)
	assert.IsType(t, &CompressionMiddleware{}, client.Transport)

	client = NewClient(Options{Raw: true, Timeout: time.Second})
	assert.Equal(t, time.Second, client.Timeout)
	assert.IsType(t, &http.Transport{}, client.Transport)
}

func encode(t *testing.T, encoding string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "raw-deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		w = fw
	default:
		t.Fatalf("unknown encoding %s", encoding)
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestClientDecodesResponses(t *testing.T) {
	cases := []struct {
		name   string
		header []string
		body   func(t *testing.T) []byte
	}{
		{"gzip", []string{"gzip"}, func(t *testing.T) []byte { return encode(t, "gzip", []byte(payload)) }},
		{"brotli", []string{"br"}, func(t *testing.T) []byte { return encode(t, "br", []byte(payload)) }},
		{"zlib deflate", []string{"deflate"}, func(t *testing.T) []byte { return encode(t, "deflate", []byte(payload)) }},
		{"raw deflate", []string{"deflate"}, func(t *testing.T) []byte { return encode(t, "raw-deflate", []byte(payload)) }},
		{"identity", []string{"identity"}, func(t *testing.T) []byte { return []byte(payload) }},
		{"layered", []string{"gzip", "br"}, func(t *testing.T) []byte {
			return encode(t, "br", encode(t, "gzip", []byte(payload)))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := tc.body(t)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, acceptEncoding, r.Header.Get("Accept-Encoding"))
				for _, h := range tc.header {
					w.Header().Add("Content-Encoding", h)
				}
				_, _ = w.Write(body)
			}))
			defer server.Close()

			resp, err := NewClient(Options{}).Get(server.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, payload, string(got))
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
			assert.True(t, resp.Uncompressed)
		})
	}
}

func TestClientRejectsUnknownEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		_, _ = w.Write([]byte("???"))
	}))
	defer server.Close()

	_, err := NewClient(Options{}).Get(server.URL)
	assert.ErrorContains(t, err, `unsupported Content-Encoding "zstd"`)
}

func TestCompressionMiddlewareKeepsCallerEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Accept-Encoding")))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := NewClient(Options{}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "identity", string(got))
}

func TestIsZlibHeader(t *testing.T) {
	assert.True(t, isZlibHeader([]byte{0x78, 0x9c}))
	assert.True(t, isZlibHeader([]byte{0x78, 0x01}))
	assert.False(t, isZlibHeader([]byte{0x1f, 0x8b}))
	assert.False(t, isZlibHeader([]byte{0x78}))
}
