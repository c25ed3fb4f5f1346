package audiofile

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/campusbgm/internal/app/auth"
	"github.com/osa030/campusbgm/internal/app/filter"
)

const testBase = "http://storage.test/public-assets/"

type storedObject struct {
	data        []byte
	contentType string
	size        int64
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]storedObject
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storedObject)}
}

func (f *fakeStorage) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = storedObject{data: data, contentType: contentType, size: size}
	return nil
}

func (f *fakeStorage) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

func (f *fakeStorage) PublicURL(path string) string {
	return testBase + path
}

func (f *fakeStorage) PathFromURL(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, testBase) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, testBase), true
}

func newTestService(t *testing.T, storage Storage) *Service {
	t.Helper()
	chain := filter.NewChain()
	chain.Add(filter.NewMimeTypeRule())
	chain.Add(filter.NewSizeLimitRule(1))
	chain.Add(filter.NewContentSniffRule())
	return NewService(storage, chain)
}

func mp3Bytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "ID3\x03\x00\x00\x00\x00\x00\x21")
	return data
}

func TestService_Upload(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(t, storage)

	data := mp3Bytes(5000)
	a, err := svc.Upload(context.Background(), Upload{
		Name:        "Morning Chime.mp3",
		ContentType: "audio/mpeg",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Path, "background-music/"))
	assert.Equal(t, ".mp3", a.Extension())
	assert.Equal(t, testBase+a.Path, a.URL)
	assert.Equal(t, "audio/mpeg", a.ContentType)
	assert.Equal(t, "Morning Chime.mp3", a.OriginalName)
	assert.False(t, a.UploadedAt.IsZero())

	obj, ok := storage.objects[a.Path]
	require.True(t, ok)
	assert.Equal(t, data, obj.data, "the inspected head must be stored with the rest of the body")
	assert.Equal(t, int64(5000), obj.size)
}

func TestService_UploadDetectsTypeAndExtension(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(t, storage)

	data := mp3Bytes(100)
	a, err := svc.Upload(context.Background(), Upload{
		Name:        "blob",
		ContentType: "audio/mpeg",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, ".mp3", a.Extension())

	a, err = svc.Upload(context.Background(), Upload{
		Name:        "chime.mp3",
		ContentType: "application/octet-stream",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", a.ContentType)
}

func TestService_UploadRejected(t *testing.T) {
	tests := []struct {
		name     string
		upload   Upload
		wantCode string
	}{
		{
			name:     "unsupported type",
			upload:   Upload{Name: "doc.pdf", ContentType: "application/pdf", Size: 10, Body: strings.NewReader("%PDF-1.4..")},
			wantCode: "unsupported_type",
		},
		{
			name:     "too large",
			upload:   Upload{Name: "a.mp3", ContentType: "audio/mpeg", Size: 2 * 1024 * 1024, Body: bytes.NewReader(mp3Bytes(100))},
			wantCode: "file_too_large",
		},
		{
			name:     "empty",
			upload:   Upload{Name: "a.mp3", ContentType: "audio/mpeg", Size: 0, Body: bytes.NewReader(nil)},
			wantCode: "empty_file",
		},
		{
			name:     "not audio",
			upload:   Upload{Name: "a.mp3", ContentType: "audio/mpeg", Size: 30, Body: strings.NewReader("this is a plain text file....")},
			wantCode: "content_mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newFakeStorage()
			svc := newTestService(t, storage)

			_, err := svc.Upload(context.Background(), tt.upload)
			var rejected *RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.wantCode, rejected.Code)
			assert.Empty(t, storage.objects)
		})
	}
}

func TestService_UploadStorageError(t *testing.T) {
	storage := newFakeStorage()
	storage.putErr = errors.New("connection refused")
	svc := newTestService(t, storage)

	data := mp3Bytes(100)
	_, err := svc.Upload(context.Background(), Upload{Name: "a.mp3", ContentType: "audio/mpeg", Size: 100, Body: bytes.NewReader(data)})
	assert.Error(t, err)
}

func TestService_UploadWithoutStorage(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Upload(context.Background(), Upload{Name: "a.mp3", Size: 1, Body: bytes.NewReader([]byte{1})})
	assert.Error(t, err)
}

func TestService_Validate(t *testing.T) {
	svc := newTestService(t, newFakeStorage())

	result := svc.Validate(context.Background(), filter.Candidate{Name: "a.wav", Size: 1024})
	assert.True(t, result.Accepted)

	result = svc.Validate(context.Background(), filter.Candidate{Name: "a.txt", Size: 1024})
	assert.Equal(t, "unsupported_type", result.Code)
}

func TestService_Delete(t *testing.T) {
	admin := auth.NewContext(context.Background(), auth.Session{Subject: "admin"})

	tests := []struct {
		name    string
		ctx     context.Context
		ref     string
		wantErr error
		removed bool
	}{
		{name: "by path", ctx: admin, ref: "background-music/a.mp3", removed: true},
		{name: "by url", ctx: admin, ref: testBase + "background-music/a.mp3", removed: true},
		{name: "unauthenticated", ctx: context.Background(), ref: "background-music/a.mp3", wantErr: ErrUnauthenticated},
		{name: "outside folder", ctx: admin, ref: "gallery/a.jpg", wantErr: ErrInvalidPath},
		{name: "traversal", ctx: admin, ref: "background-music/../gallery/a.jpg", wantErr: ErrInvalidPath},
		{name: "foreign url", ctx: admin, ref: "https://elsewhere.test/background-music/a.mp3", wantErr: ErrInvalidPath},
		{name: "folder only", ctx: admin, ref: "background-music/", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newFakeStorage()
			storage.objects["background-music/a.mp3"] = storedObject{data: []byte{1}}
			svc := newTestService(t, storage)

			err := svc.Delete(tt.ctx, tt.ref)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			_, exists := storage.objects["background-music/a.mp3"]
			assert.Equal(t, !tt.removed, exists)
		})
	}
}
