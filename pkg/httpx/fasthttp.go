package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/valyala/fasthttp"
)

type fastHTTPServer struct {
	srv *fasthttp.Server
}

func newFastHTTPServer(h http.Handler) *fastHTTPServer {
	return &fastHTTPServer{srv: &fasthttp.Server{
		Handler: adaptHandler(h),
	}}
}

func (s *fastHTTPServer) ListenAndServe(addr string) error {
	return s.srv.ListenAndServe(addr)
}

func (s *fastHTTPServer) ListenAndServeTLS(addr, certFile, keyFile string) error {
	return s.srv.ListenAndServeTLS(addr, certFile, keyFile)
}

func (s *fastHTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// adaptHandler bridges a fasthttp request into a net/http request so the
// one router serves both engines. The body is copied; fasthttp reuses its
// buffers after the handler returns.
func adaptHandler(h http.Handler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		u, err := url.ParseRequestURI(string(ctx.RequestURI()))
		if err != nil {
			ctx.SetStatusCode(http.StatusBadRequest)
			return
		}

		hdr := make(http.Header)
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			key := string(k)
			hdr[http.CanonicalHeaderKey(key)] = append(hdr[http.CanonicalHeaderKey(key)], string(v))
		})

		body := append([]byte(nil), ctx.PostBody()...)
		req := &http.Request{
			Method:        string(ctx.Method()),
			URL:           u,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        hdr,
			Body:          io.NopCloser(bytes.NewReader(body)),
			ContentLength: int64(len(body)),
			Host:          string(ctx.Host()),
			RemoteAddr:    ctx.RemoteAddr().String(),
			RequestURI:    string(ctx.RequestURI()),
		}
		req = req.WithContext(context.Background())

		rw := &fastResponseWriter{ctx: ctx, header: make(http.Header)}
		h.ServeHTTP(rw, req)
		rw.flush()
	}
}

type fastResponseWriter struct {
	ctx     *fasthttp.RequestCtx
	header  http.Header
	status  int
	flushed bool
}

func (w *fastResponseWriter) Header() http.Header { return w.header }

func (w *fastResponseWriter) WriteHeader(status int) {
	if w.flushed {
		return
	}
	w.status = status
	for k, vals := range w.header {
		for _, v := range vals {
			w.ctx.Response.Header.Add(k, v)
		}
	}
	w.ctx.SetStatusCode(status)
	w.flushed = true
}

func (w *fastResponseWriter) Write(b []byte) (int, error) {
	if !w.flushed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ctx.Write(b)
}

func (w *fastResponseWriter) flush() {
	if !w.flushed {
		w.WriteHeader(http.StatusOK)
	}
}
