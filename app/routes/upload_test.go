package routes_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartRequest(t *testing.T, field, filename string, content []byte, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestUploadStoresImage(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, "file", "chai.png", pngHeader, f.vars["customerToken"]))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			URL  string `json:"url"`
			Path string `json:"path"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, strings.HasPrefix(env.Data.Path, "uploads/"))
	assert.True(t, strings.HasSuffix(env.Data.Path, ".png"))
	assert.Equal(t, "/storage/"+env.Data.Path, env.Data.URL)
}

func TestUploadRejects(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, "file", "notes.txt", []byte("just text"), f.vars["customerToken"]))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, "image", "chai.png", pngHeader, f.vars["customerToken"]))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "wrong field name")

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, "file", "chai.png", pngHeader, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
