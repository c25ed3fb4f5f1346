// Package audiofile validates, stores and deletes admin-supplied background music files.
package audiofile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/app/auth"
	"github.com/osa030/campusbgm/internal/app/filter"
	"github.com/osa030/campusbgm/internal/domain/asset"
)

// Folder is the storage prefix of uploaded background music.
const Folder = "background-music"

// headSize is the number of leading bytes inspected by content rules.
const headSize = 3072

var (
	// ErrUnauthenticated is returned when an operation needs an admin session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidPath is returned when a path does not name an uploaded file.
	ErrInvalidPath = errors.New("invalid audio file path")
)

// RejectedError reports an upload refused by a validation rule.
type RejectedError struct {
	Code string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("audio file rejected: %s", e.Code)
}

// Storage is the blob store the service writes to.
type Storage interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, path string) error
	PublicURL(path string) string
	PathFromURL(publicURL string) (string, bool)
}

// Upload is an audio file offered by an admin.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service manages uploaded audio files.
type Service struct {
	storage Storage
	chain   *filter.Chain
	now     func() time.Time
}

// NewService creates a new Service.
func NewService(storage Storage, chain *filter.Chain) *Service {
	return &Service{
		storage: storage,
		chain:   chain,
		now:     time.Now,
	}
}

// Validate checks a candidate file without storing it.
func (s *Service) Validate(ctx context.Context, c filter.Candidate) filter.Result {
	return s.chain.Execute(ctx, c)
}

// MaxBytes returns the largest accepted file size, or 0 when unlimited.
func (s *Service) MaxBytes() int64 {
	return s.chain.MaxBytes()
}

// Upload validates and stores an audio file, returning its public URL and storage path.
func (s *Service) Upload(ctx context.Context, u Upload) (asset.AudioAsset, error) {
	if s.storage == nil {
		return asset.AudioAsset{}, errors.New("audio storage is not configured")
	}

	head := make([]byte, headSize)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return asset.AudioAsset{}, errors.Wrap(err, "failed to read audio file")
	}
	head = head[:n]

	candidate := filter.Candidate{
		Name:        u.Name,
		ContentType: u.ContentType,
		Size:        u.Size,
		Head:        head,
	}
	if result := s.Validate(ctx, candidate); !result.Accepted {
		zlog.Info().Msgf("audiofile: upload rejected: name=%s code=%s", u.Name, result.Code)
		return asset.AudioAsset{}, &RejectedError{Code: result.Code}
	}

	contentType := candidate.MediaType()
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = filter.DetectContentType(head)
	}

	ext := candidate.Extension()
	if ext == "" {
		if m := mimetype.Lookup(contentType); m != nil {
			ext = m.Extension()
		}
	}

	path := Folder + "/" + uuid.NewString() + ext
	body := io.MultiReader(bytes.NewReader(head), u.Body)
	if err := s.storage.Put(ctx, path, body, u.Size, contentType); err != nil {
		return asset.AudioAsset{}, errors.Wrap(err, "failed to store audio file")
	}

	a := asset.AudioAsset{
		Path:         path,
		URL:          s.storage.PublicURL(path),
		ContentType:  contentType,
		Size:         u.Size,
		OriginalName: u.Name,
		UploadedAt:   s.now(),
	}
	zlog.Info().Msgf("audiofile: uploaded: path=%s name=%s size=%.1fMB", a.Path, a.OriginalName, a.SizeMB())
	return a, nil
}

// Delete removes an uploaded file. ref is a storage path or a public URL.
// The context must carry an authenticated session.
func (s *Service) Delete(ctx context.Context, ref string) error {
	session, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if s.storage == nil {
		return errors.New("audio storage is not configured")
	}

	path, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := s.storage.Remove(ctx, path); err != nil {
		return errors.Wrap(err, "failed to delete audio file")
	}
	zlog.Info().Msgf("audiofile: deleted: path=%s by=%s", path, session.Subject)
	return nil
}

func (s *Service) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "://") {
		path, ok := s.storage.PathFromURL(ref)
		if !ok {
			return "", errors.Wrapf(ErrInvalidPath, "url outside storage: %s", ref)
		}
		ref = path
	}
	ref = strings.TrimLeft(ref, "/")
	if !strings.HasPrefix(ref, Folder+"/") || strings.Contains(ref, "..") || len(ref) == len(Folder)+1 {
		return "", errors.Wrapf(ErrInvalidPath, "%s", ref)
	}
	return ref, nil
}
