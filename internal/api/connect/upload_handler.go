package connect

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/app/audiofile"
	"github.com/osa030/campusbgm/internal/app/auth"
	"github.com/osa030/campusbgm/internal/infra/config"
)

// UploadPath is where the upload handler is mounted.
const UploadPath = "/admin/audio"

// uploadField is the multipart form field holding the file.
const uploadField = "file"

// UploadHandler accepts multipart audio uploads from admins.
type UploadHandler struct {
	audio    AudioService
	config   *config.Config
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler.
// Request bodies are capped at the limit the upload rules enforce.
func NewUploadHandler(audio AudioService, cfg *config.Config) *UploadHandler {
	maxBytes := int64(cfg.Upload.MaxSizeMB) << 20
	if n := audio.MaxBytes(); n > 0 {
		maxBytes = n
	}
	return &UploadHandler{
		audio:    audio,
		config:   cfg,
		maxBytes: maxBytes,
	}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.write(w, http.StatusMethodNotAllowed, UploadAudioResponse{Message: h.config.GetMessage("")})
		return
	}
	if !ValidAdminToken(h.config.Admin.Token, r.Header.Get(AdminTokenHeader)) {
		h.write(w, http.StatusUnauthorized, UploadAudioResponse{Code: "unauthenticated", Message: h.config.GetMessage("unauthenticated")})
		return
	}
	ctx := auth.NewContext(r.Context(), auth.Session{Subject: adminSubject})

	// Leave room for multipart framing; the size rule decides on the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.write(w, http.StatusRequestEntityTooLarge, UploadAudioResponse{Code: "file_too_large", Message: h.config.GetMessage("file_too_large")})
			return
		}
		zlog.Debug().Err(err).Msg("upload: malformed request")
		h.write(w, http.StatusBadRequest, UploadAudioResponse{Message: h.config.GetMessage("")})
		return
	}
	defer file.Close()

	a, err := h.audio.Upload(ctx, audiofile.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		var rejected *audiofile.RejectedError
		if errors.As(err, &rejected) {
			h.write(w, http.StatusUnprocessableEntity, UploadAudioResponse{Code: rejected.Code, Message: h.config.GetMessage(rejected.Code)})
			return
		}
		zlog.Error().Err(err).Msgf("upload: failed: name=%s", header.Filename)
		h.write(w, http.StatusInternalServerError, UploadAudioResponse{Message: h.config.GetMessage("")})
		return
	}

	h.write(w, http.StatusOK, UploadAudioResponse{
		Success: true,
		Message: h.config.GetMessage("success"),
		URL:     a.URL,
		Path:    a.Path,
	})
}

func (h *UploadHandler) write(w http.ResponseWriter, status int, body UploadAudioResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Debug().Err(err).Msg("upload: failed to write response")
	}
}
