package connect

import (
	"context"
	"math"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/app/audiofile"
	"github.com/osa030/campusbgm/internal/app/filter"
	"github.com/osa030/campusbgm/internal/app/notification"
	"github.com/osa030/campusbgm/internal/app/playback"
	"github.com/osa030/campusbgm/internal/app/settings"
	"github.com/osa030/campusbgm/internal/domain/asset"
	"github.com/osa030/campusbgm/internal/domain/interaction"
	"github.com/osa030/campusbgm/internal/domain/music"
	"github.com/osa030/campusbgm/internal/infra/config"
)

// SettingsService reads and writes site settings.
type SettingsService interface {
	FetchSiteSettings(ctx context.Context) (map[string]string, error)
	UpdateSiteSetting(ctx context.Context, key, value string) error
	FetchBackgroundMusicSettings(ctx context.Context) (music.Settings, error)
	UpdateBackgroundMusicSettings(ctx context.Context, s music.Settings) error
}

// PlaybackController is the part of the controller the services drive.
type PlaybackController interface {
	Status() playback.Status
	Refresh(ctx context.Context)
	Interact(kind interaction.Kind) bool
}

// AudioService validates, stores and deletes audio files.
type AudioService interface {
	Validate(ctx context.Context, c filter.Candidate) filter.Result
	Upload(ctx context.Context, u audiofile.Upload) (asset.AudioAsset, error)
	Delete(ctx context.Context, ref string) error
	MaxBytes() int64
}

// AdminService implements the AdminService RPC.
type AdminService struct {
	settings      SettingsService
	controller    PlaybackController
	audio         AudioService
	notifications *notification.Manager
	config        *config.Config
	done          <-chan struct{}
}

// NewAdminService creates a new AdminService.
// Watch streams end when done is closed.
func NewAdminService(
	settings SettingsService,
	controller PlaybackController,
	audio AudioService,
	notifications *notification.Manager,
	cfg *config.Config,
	done <-chan struct{},
) *AdminService {
	return &AdminService{
		settings:      settings,
		controller:    controller,
		audio:         audio,
		notifications: notifications,
		config:        cfg,
		done:          done,
	}
}

// Ensure AdminService implements the interface.
var _ AdminServiceHandler = (*AdminService)(nil)

// GetMusicSettings returns the stored music settings with a preview of the effective gain.
func (s *AdminService) GetMusicSettings(
	ctx context.Context,
	req *connect.Request[GetMusicSettingsRequest],
) (*connect.Response[GetMusicSettingsResponse], error) {
	ms, err := s.settings.FetchBackgroundMusicSettings(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	return connect.NewResponse(&GetMusicSettingsResponse{
		Settings:      musicSettingsToWire(ms),
		VolumePercent: percent(ms.Volume),
		GainPercent:   percent(ms.Gain()),
	}), nil
}

// UpdateMusicSettings stores new music settings and applies them right away.
func (s *AdminService) UpdateMusicSettings(
	ctx context.Context,
	req *connect.Request[UpdateMusicSettingsRequest],
) (*connect.Response[UpdateMusicSettingsResponse], error) {
	ms := musicSettingsFromWire(req.Msg.Settings)
	if err := s.settings.UpdateBackgroundMusicSettings(ctx, ms); err != nil {
		if errors.Is(err, settings.ErrInvalidValue) {
			return connect.NewResponse(&UpdateMusicSettingsResponse{
				Success: false,
				Message: err.Error(),
			}), nil
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.controller.Refresh(ctx)

	return connect.NewResponse(&UpdateMusicSettingsResponse{
		Success:     true,
		Message:     s.config.GetMessage("success"),
		GainPercent: percent(ms.Gain()),
	}), nil
}

// GetSiteSettings returns every site setting.
func (s *AdminService) GetSiteSettings(
	ctx context.Context,
	req *connect.Request[GetSiteSettingsRequest],
) (*connect.Response[GetSiteSettingsResponse], error) {
	values, err := s.settings.FetchSiteSettings(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&GetSiteSettingsResponse{Settings: values}), nil
}

// UpdateSiteSetting writes a single site setting.
func (s *AdminService) UpdateSiteSetting(
	ctx context.Context,
	req *connect.Request[UpdateSiteSettingRequest],
) (*connect.Response[UpdateSiteSettingResponse], error) {
	err := s.settings.UpdateSiteSetting(ctx, req.Msg.Key, req.Msg.Value)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidKey) || errors.Is(err, settings.ErrInvalidValue) {
			return connect.NewResponse(&UpdateSiteSettingResponse{
				Success: false,
				Message: err.Error(),
			}), nil
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	if isMusicKey(req.Msg.Key) {
		s.controller.Refresh(ctx)
	}

	return connect.NewResponse(&UpdateSiteSettingResponse{
		Success: true,
		Message: s.config.GetMessage("success"),
	}), nil
}

// GetPlaybackStatus returns the controller status.
func (s *AdminService) GetPlaybackStatus(
	ctx context.Context,
	req *connect.Request[GetPlaybackStatusRequest],
) (*connect.Response[GetPlaybackStatusResponse], error) {
	return connect.NewResponse(&GetPlaybackStatusResponse{
		Status: playbackStatusToWire(s.controller.Status()),
	}), nil
}

// DeleteAudio removes an uploaded audio file.
func (s *AdminService) DeleteAudio(
	ctx context.Context,
	req *connect.Request[DeleteAudioRequest],
) (*connect.Response[DeleteAudioResponse], error) {
	err := s.audio.Delete(ctx, req.Msg.Path)
	switch {
	case err == nil:
		return connect.NewResponse(&DeleteAudioResponse{
			Success: true,
			Message: s.config.GetMessage("success"),
		}), nil
	case errors.Is(err, audiofile.ErrUnauthenticated):
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New(s.config.GetMessage("unauthenticated")))
	case errors.Is(err, audiofile.ErrInvalidPath):
		return connect.NewResponse(&DeleteAudioResponse{
			Success: false,
			Message: err.Error(),
		}), nil
	default:
		zlog.Error().Err(err).Msgf("failed to delete audio: path=%s", req.Msg.Path)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
}

// ValidateAudio checks file metadata against the upload rules without uploading.
func (s *AdminService) ValidateAudio(
	ctx context.Context,
	req *connect.Request[ValidateAudioRequest],
) (*connect.Response[ValidateAudioResponse], error) {
	result := s.audio.Validate(ctx, filter.Candidate{
		Name:        req.Msg.Name,
		ContentType: req.Msg.ContentType,
		Size:        req.Msg.Size,
	})

	resp := &ValidateAudioResponse{Valid: result.Accepted, Code: result.Code}
	if result.Accepted {
		resp.Message = s.config.GetMessage("success")
	} else {
		resp.Message = s.config.GetMessage(result.Code)
	}
	return connect.NewResponse(resp), nil
}

// WatchPlayback streams playback events, starting with the current state.
func (s *AdminService) WatchPlayback(
	ctx context.Context,
	req *connect.Request[WatchPlaybackRequest],
	stream *connect.ServerStream[notification.Notification],
) error {
	status := s.controller.Status()
	initial := &notification.Notification{
		SequenceNo: s.notifications.NextSequenceNo(),
		Type:       "initial_state",
		State:      status.State.String(),
		URL:        status.URL,
		Error:      status.LastError,
		At:         status.StartedAt,
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notifications.Subscribe(adapter)
	defer func() {
		s.notifications.Unsubscribe(subscriptionID)
		adapter.close()
	}()

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

var errStreamClosed = errors.New("stream closed")

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized and refused once the handler has returned.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[notification.Notification]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	return a.stream.Send(n)
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func isMusicKey(key string) bool {
	for _, k := range music.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// percent rounds a [0,1] value to a percentage with two decimals.
func percent(v float64) float64 {
	return math.Round(v*10000) / 100
}
