package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/campusbgm/internal/app/notification"
)

const (
	// AdminServiceName is the fully-qualified name of the admin service.
	AdminServiceName = "campusbgm.v1.AdminService"
	// KioskServiceName is the fully-qualified name of the kiosk service.
	KioskServiceName = "campusbgm.v1.KioskService"
)

// Procedure paths.
const (
	AdminServiceGetMusicSettingsProcedure    = "/campusbgm.v1.AdminService/GetMusicSettings"
	AdminServiceUpdateMusicSettingsProcedure = "/campusbgm.v1.AdminService/UpdateMusicSettings"
	AdminServiceGetSiteSettingsProcedure     = "/campusbgm.v1.AdminService/GetSiteSettings"
	AdminServiceUpdateSiteSettingProcedure   = "/campusbgm.v1.AdminService/UpdateSiteSetting"
	AdminServiceGetPlaybackStatusProcedure   = "/campusbgm.v1.AdminService/GetPlaybackStatus"
	AdminServiceDeleteAudioProcedure         = "/campusbgm.v1.AdminService/DeleteAudio"
	AdminServiceValidateAudioProcedure       = "/campusbgm.v1.AdminService/ValidateAudio"
	AdminServiceWatchPlaybackProcedure       = "/campusbgm.v1.AdminService/WatchPlayback"

	KioskServiceReportInteractionProcedure = "/campusbgm.v1.KioskService/ReportInteraction"
	KioskServiceGetPlaybackStatusProcedure = "/campusbgm.v1.KioskService/GetPlaybackStatus"
)

// AdminServiceHandler is implemented by the admin service.
type AdminServiceHandler interface {
	GetMusicSettings(context.Context, *connect.Request[GetMusicSettingsRequest]) (*connect.Response[GetMusicSettingsResponse], error)
	UpdateMusicSettings(context.Context, *connect.Request[UpdateMusicSettingsRequest]) (*connect.Response[UpdateMusicSettingsResponse], error)
	GetSiteSettings(context.Context, *connect.Request[GetSiteSettingsRequest]) (*connect.Response[GetSiteSettingsResponse], error)
	UpdateSiteSetting(context.Context, *connect.Request[UpdateSiteSettingRequest]) (*connect.Response[UpdateSiteSettingResponse], error)
	GetPlaybackStatus(context.Context, *connect.Request[GetPlaybackStatusRequest]) (*connect.Response[GetPlaybackStatusResponse], error)
	DeleteAudio(context.Context, *connect.Request[DeleteAudioRequest]) (*connect.Response[DeleteAudioResponse], error)
	ValidateAudio(context.Context, *connect.Request[ValidateAudioRequest]) (*connect.Response[ValidateAudioResponse], error)
	WatchPlayback(context.Context, *connect.Request[WatchPlaybackRequest], *connect.ServerStream[notification.Notification]) error
}

// NewAdminServiceHandler builds an HTTP handler for the admin service.
// It returns the path on which to mount the handler and the handler itself.
func NewAdminServiceHandler(svc AdminServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(AdminServiceGetMusicSettingsProcedure, connect.NewUnaryHandler(AdminServiceGetMusicSettingsProcedure, svc.GetMusicSettings, opts...))
	mux.Handle(AdminServiceUpdateMusicSettingsProcedure, connect.NewUnaryHandler(AdminServiceUpdateMusicSettingsProcedure, svc.UpdateMusicSettings, opts...))
	mux.Handle(AdminServiceGetSiteSettingsProcedure, connect.NewUnaryHandler(AdminServiceGetSiteSettingsProcedure, svc.GetSiteSettings, opts...))
	mux.Handle(AdminServiceUpdateSiteSettingProcedure, connect.NewUnaryHandler(AdminServiceUpdateSiteSettingProcedure, svc.UpdateSiteSetting, opts...))
	mux.Handle(AdminServiceGetPlaybackStatusProcedure, connect.NewUnaryHandler(AdminServiceGetPlaybackStatusProcedure, svc.GetPlaybackStatus, opts...))
	mux.Handle(AdminServiceDeleteAudioProcedure, connect.NewUnaryHandler(AdminServiceDeleteAudioProcedure, svc.DeleteAudio, opts...))
	mux.Handle(AdminServiceValidateAudioProcedure, connect.NewUnaryHandler(AdminServiceValidateAudioProcedure, svc.ValidateAudio, opts...))
	mux.Handle(AdminServiceWatchPlaybackProcedure, connect.NewServerStreamHandler(AdminServiceWatchPlaybackProcedure, svc.WatchPlayback, opts...))

	return "/" + AdminServiceName + "/", mux
}

// KioskServiceHandler is implemented by the kiosk service.
type KioskServiceHandler interface {
	ReportInteraction(context.Context, *connect.Request[ReportInteractionRequest]) (*connect.Response[ReportInteractionResponse], error)
	GetPlaybackStatus(context.Context, *connect.Request[GetPlaybackStatusRequest]) (*connect.Response[GetPlaybackStatusResponse], error)
}

// NewKioskServiceHandler builds an HTTP handler for the kiosk service.
func NewKioskServiceHandler(svc KioskServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(KioskServiceReportInteractionProcedure, connect.NewUnaryHandler(KioskServiceReportInteractionProcedure, svc.ReportInteraction, opts...))
	mux.Handle(KioskServiceGetPlaybackStatusProcedure, connect.NewUnaryHandler(KioskServiceGetPlaybackStatusProcedure, svc.GetPlaybackStatus, opts...))

	return "/" + KioskServiceName + "/", mux
}

// AdminServiceClient is a client for the admin service.
type AdminServiceClient struct {
	getMusicSettings    *connect.Client[GetMusicSettingsRequest, GetMusicSettingsResponse]
	updateMusicSettings *connect.Client[UpdateMusicSettingsRequest, UpdateMusicSettingsResponse]
	getSiteSettings     *connect.Client[GetSiteSettingsRequest, GetSiteSettingsResponse]
	updateSiteSetting   *connect.Client[UpdateSiteSettingRequest, UpdateSiteSettingResponse]
	getPlaybackStatus   *connect.Client[GetPlaybackStatusRequest, GetPlaybackStatusResponse]
	deleteAudio         *connect.Client[DeleteAudioRequest, DeleteAudioResponse]
	validateAudio       *connect.Client[ValidateAudioRequest, ValidateAudioResponse]
	watchPlayback       *connect.Client[WatchPlaybackRequest, notification.Notification]
}

// NewAdminServiceClient creates a client for the admin service at baseURL.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &AdminServiceClient{
		getMusicSettings:    connect.NewClient[GetMusicSettingsRequest, GetMusicSettingsResponse](httpClient, baseURL+AdminServiceGetMusicSettingsProcedure, opts...),
		updateMusicSettings: connect.NewClient[UpdateMusicSettingsRequest, UpdateMusicSettingsResponse](httpClient, baseURL+AdminServiceUpdateMusicSettingsProcedure, opts...),
		getSiteSettings:     connect.NewClient[GetSiteSettingsRequest, GetSiteSettingsResponse](httpClient, baseURL+AdminServiceGetSiteSettingsProcedure, opts...),
		updateSiteSetting:   connect.NewClient[UpdateSiteSettingRequest, UpdateSiteSettingResponse](httpClient, baseURL+AdminServiceUpdateSiteSettingProcedure, opts...),
		getPlaybackStatus:   connect.NewClient[GetPlaybackStatusRequest, GetPlaybackStatusResponse](httpClient, baseURL+AdminServiceGetPlaybackStatusProcedure, opts...),
		deleteAudio:         connect.NewClient[DeleteAudioRequest, DeleteAudioResponse](httpClient, baseURL+AdminServiceDeleteAudioProcedure, opts...),
		validateAudio:       connect.NewClient[ValidateAudioRequest, ValidateAudioResponse](httpClient, baseURL+AdminServiceValidateAudioProcedure, opts...),
		watchPlayback:       connect.NewClient[WatchPlaybackRequest, notification.Notification](httpClient, baseURL+AdminServiceWatchPlaybackProcedure, opts...),
	}
}

func (c *AdminServiceClient) GetMusicSettings(ctx context.Context, req *connect.Request[GetMusicSettingsRequest]) (*connect.Response[GetMusicSettingsResponse], error) {
	return c.getMusicSettings.CallUnary(ctx, req)
}

func (c *AdminServiceClient) UpdateMusicSettings(ctx context.Context, req *connect.Request[UpdateMusicSettingsRequest]) (*connect.Response[UpdateMusicSettingsResponse], error) {
	return c.updateMusicSettings.CallUnary(ctx, req)
}

func (c *AdminServiceClient) GetSiteSettings(ctx context.Context, req *connect.Request[GetSiteSettingsRequest]) (*connect.Response[GetSiteSettingsResponse], error) {
	return c.getSiteSettings.CallUnary(ctx, req)
}

func (c *AdminServiceClient) UpdateSiteSetting(ctx context.Context, req *connect.Request[UpdateSiteSettingRequest]) (*connect.Response[UpdateSiteSettingResponse], error) {
	return c.updateSiteSetting.CallUnary(ctx, req)
}

func (c *AdminServiceClient) GetPlaybackStatus(ctx context.Context, req *connect.Request[GetPlaybackStatusRequest]) (*connect.Response[GetPlaybackStatusResponse], error) {
	return c.getPlaybackStatus.CallUnary(ctx, req)
}

func (c *AdminServiceClient) DeleteAudio(ctx context.Context, req *connect.Request[DeleteAudioRequest]) (*connect.Response[DeleteAudioResponse], error) {
	return c.deleteAudio.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ValidateAudio(ctx context.Context, req *connect.Request[ValidateAudioRequest]) (*connect.Response[ValidateAudioResponse], error) {
	return c.validateAudio.CallUnary(ctx, req)
}

func (c *AdminServiceClient) WatchPlayback(ctx context.Context, req *connect.Request[WatchPlaybackRequest]) (*connect.ServerStreamForClient[notification.Notification], error) {
	return c.watchPlayback.CallServerStream(ctx, req)
}

// KioskServiceClient is a client for the kiosk service.
type KioskServiceClient struct {
	reportInteraction *connect.Client[ReportInteractionRequest, ReportInteractionResponse]
	getPlaybackStatus *connect.Client[GetPlaybackStatusRequest, GetPlaybackStatusResponse]
}

// NewKioskServiceClient creates a client for the kiosk service at baseURL.
func NewKioskServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *KioskServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &KioskServiceClient{
		reportInteraction: connect.NewClient[ReportInteractionRequest, ReportInteractionResponse](httpClient, baseURL+KioskServiceReportInteractionProcedure, opts...),
		getPlaybackStatus: connect.NewClient[GetPlaybackStatusRequest, GetPlaybackStatusResponse](httpClient, baseURL+KioskServiceGetPlaybackStatusProcedure, opts...),
	}
}

func (c *KioskServiceClient) ReportInteraction(ctx context.Context, req *connect.Request[ReportInteractionRequest]) (*connect.Response[ReportInteractionResponse], error) {
	return c.reportInteraction.CallUnary(ctx, req)
}

func (c *KioskServiceClient) GetPlaybackStatus(ctx context.Context, req *connect.Request[GetPlaybackStatusRequest]) (*connect.Response[GetPlaybackStatusResponse], error) {
	return c.getPlaybackStatus.CallUnary(ctx, req)
}
