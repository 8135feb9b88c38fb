package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// encoder is a pooled body encoder for one Content-Encoding.
type encoder interface {
	io.WriteCloser
	Reset(w io.Writer)
}

var (
	_ encoder = (*gzip.Writer)(nil)
	_ encoder = (*zstd.Encoder)(nil)
)

// encodings in server preference order.
var encodings = []struct {
	name string
	pool *sync.Pool
}{
	{"zstd", &sync.Pool{New: func() any {
		zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		if err != nil {
			panic(err)
		}
		return zw
	}}},
	{"gzip", &sync.Pool{New: func() any {
		gw, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		return gw
	}}},
}

// negotiate picks the preferred encoding the client accepts with q > 0.
// A "*" entry accepts any encoding not listed explicitly.
func negotiate(header string) int {
	accepted := map[string]float64{}
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.EqualFold(k, "q") {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					q = f
				}
			}
		}
		accepted[name] = q
	}
	for i, e := range encodings {
		q, ok := accepted[e.name]
		if !ok {
			q, ok = accepted["*"]
		}
		if ok && q > 0 {
			return i
		}
	}
	return -1
}

type compressResponseWriter struct {
	http.ResponseWriter
	enc      encoder
	bodiless bool // 1xx, 204 and 304 responses are sent as is
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	h := cw.Header()
	h.Del("Content-Length")
	if (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified {
		cw.bodiless = true
		h.Del("Content-Encoding")
		h.Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.bodiless {
		return cw.ResponseWriter.Write(b)
	}
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	cw.Header().Del("Content-Length")
	return cw.enc.Write(b)
}

// Compression encodes response bodies with zstd or gzip according to the
// request's Accept-Encoding, preferring zstd.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}
		i := negotiate(r.Header.Get("Accept-Encoding"))
		if i < 0 {
			next.ServeHTTP(w, r)
			return
		}
		e := encodings[i]
		w.Header().Set("Content-Encoding", e.name)
		w.Header().Add("Vary", "Accept-Encoding")

		enc := e.pool.Get().(encoder)
		enc.Reset(w)
		cw := &compressResponseWriter{ResponseWriter: w, enc: enc}
		defer func() {
			if cw.bodiless {
				// no trailer on a response without a body
				enc.Reset(io.Discard)
			}
			_ = enc.Close()
			e.pool.Put(enc)
		}()
		next.ServeHTTP(cw, r)
	})
}
