package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, file, want string
	}{
		{"run-1", "/tmp/out/metadados.json", "run-1/metadados.json"},
		{"/run-1/", "metadados.xlsx", "run-1/metadados.xlsx"},
		{"", "/a/b/c.txt", "c.txt"},
		{"a/b", "x.txt", "a/b/x.txt"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ObjectKey(tc.prefix, tc.file))
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("a.JSON"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType("a.xlsx"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("a.txt"))
	assert.Equal(t, "application/octet-stream", contentType("a.unknownext"))
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("MINIO_ACCESS_KEY", "")
	t.Setenv("MINIO_SECRET_KEY", "")
	_, err := S3ConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("MINIO_USE_SSL", "true")
	cfg, err := S3ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, S3Config{Endpoint: "localhost:9000", AccessKey: "access", SecretKey: "secret", UseSSL: true}, cfg)
}

// fakeS3 answers just enough of the S3 API for bucket creation and uploads.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	objects  map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucketOnly := len(parts) == 1 || parts[1] == ""
	switch {
	case r.Method == http.MethodHead && bucketOnly:
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut && bucketOnly:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		f.objects[parts[1]] = string(body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestPublish(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	pub, err := NewS3Publisher(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "metadados.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[]`), 0o644))

	keys, err := pub.Publish(context.Background(), "photos", "run-42", []string{jsonPath})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-42/metadados.json"}, keys)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.requests, "PUT /photos/")
	assert.Contains(t, fake.objects, "run-42/metadados.json")
}
