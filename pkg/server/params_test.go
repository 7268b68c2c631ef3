package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestSearchParams(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/params/search", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"search":"none","limit":10}`, w.Body.String())

	w = do(t, srv, httptest.NewRequest(http.MethodGet, "/params/search?q=go&limit=25", nil))
	assert.JSONEq(t, `{"search":"go","limit":25}`, w.Body.String())

	// Non-integer and out-of-range limits fall back to the default.
	for _, limit := range []string{"abc", "2.5", "9007199254740992"} {
		w = do(t, srv, httptest.NewRequest(http.MethodGet, "/params/search?limit="+url.QueryEscape(limit), nil))
		assert.JSONEq(t, `{"search":"none","limit":10}`, w.Body.String(), "limit %q", limit)
	}
}

func TestURLParams(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/params/url/hello-world", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dynamic":"hello-world"}`, w.Body.String())
}

func TestHeaderParams(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/params/header", nil))
	assert.JSONEq(t, `{"header":"none"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/params/header", nil)
	req.Header.Set("X-Custom-Header", "trace-me")
	w = do(t, srv, req)
	assert.JSONEq(t, `{"header":"trace-me"}`, w.Body.String())
}

func TestBodyParams(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/params/body", strings.NewReader(`{"a":1,"b":"two"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(t, srv, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"body":{"a":1,"b":"two"}}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/params/body", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	w = do(t, srv, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errInvalidJSON)
}

func TestCookieParams(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/params/cookie", nil))
	assert.JSONEq(t, `{"cookie":"none"}`, w.Body.String())

	var bar *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "bar" {
			bar = cookie
		}
	}
	require.NotNil(t, bar)
	assert.Equal(t, "12345", bar.Value)
	assert.True(t, bar.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/params/cookie", nil)
	req.AddCookie(&http.Cookie{Name: "foo", Value: "hello"})
	w = do(t, srv, req)
	assert.JSONEq(t, `{"cookie":"hello"}`, w.Body.String())
}

func TestFormParams(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"name": {"Ada"}, "age": {"36"}}
	req := httptest.NewRequest(http.MethodPost, "/params/form", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, srv, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Ada","age":36}`, w.Body.String())

	// Missing fields get the documented fallbacks.
	req = httptest.NewRequest(http.MethodPost, "/params/form", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = do(t, srv, req)
	assert.JSONEq(t, `{"name":"none","age":0}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/params/form", strings.NewReader(`{"name":"Ada"}`))
	req.Header.Set("Content-Type", "application/json")
	w = do(t, srv, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errInvalidForm)
}

func multipartUpload(t *testing.T, content []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="note.txt"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestFileParams(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartUpload(t, []byte("hello file"), "text/plain")
	req := httptest.NewRequest(http.MethodPost, "/params/file", body)
	req.Header.Set("Content-Type", contentType)
	w := do(t, srv, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"filename":"note.txt","size":10,"content":"hello file"}`, w.Body.String())
}

func TestFileParamsRejectsUndeclaredType(t *testing.T) {
	srv, _ := newTestServer(t)

	// A part that never declares a Content-Type is rejected even when its
	// bytes happen to look like text.
	body, contentType := multipartUpload(t, []byte("plain enough"), "")
	req := httptest.NewRequest(http.MethodPost, "/params/file", body)
	req.Header.Set("Content-Type", contentType)
	w := do(t, srv, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Contains(t, w.Body.String(), errInvalidFileType)
	assert.Contains(t, w.Body.String(), "received mimetype: unknown")
}

func TestFileParamsRejections(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/params/file", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		w := do(t, srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), errInvalidMultipart)
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "value"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/params/file", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := do(t, srv, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), errFileNotFound)
	})

	t.Run("wrong declared type", func(t *testing.T) {
		body, contentType := multipartUpload(t, []byte("<html></html>"), "text/html")
		req := httptest.NewRequest(http.MethodPost, "/params/file", body)
		req.Header.Set("Content-Type", contentType)
		w := do(t, srv, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Contains(t, w.Body.String(), errInvalidFileType)
	})

	t.Run("null bytes", func(t *testing.T) {
		body, contentType := multipartUpload(t, []byte("ok\x00bad"), "text/plain")
		req := httptest.NewRequest(http.MethodPost, "/params/file", body)
		req.Header.Set("Content-Type", contentType)
		w := do(t, srv, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Contains(t, w.Body.String(), errNotPlainText)
	})

	t.Run("too large", func(t *testing.T) {
		body, contentType := multipartUpload(t, bytes.Repeat([]byte("a"), maxFileBytes+1), "text/plain")
		req := httptest.NewRequest(http.MethodPost, "/params/file", body)
		req.Header.Set("Content-Type", contentType)
		w := do(t, srv, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), errFileSizeExceeded)
	})
}
