package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/domain/interaction"
)

// KioskService implements the KioskService RPC.
// Displays running the site report visitor interactions through it.
type KioskService struct {
	controller PlaybackController
}

// NewKioskService creates a new KioskService.
func NewKioskService(controller PlaybackController) *KioskService {
	return &KioskService{controller: controller}
}

// Ensure KioskService implements the interface.
var _ KioskServiceHandler = (*KioskService)(nil)

// ReportInteraction feeds a visitor interaction into the permission latch.
func (s *KioskService) ReportInteraction(
	ctx context.Context,
	req *connect.Request[ReportInteractionRequest],
) (*connect.Response[ReportInteractionResponse], error) {
	kind, err := interaction.ParseKind(req.Msg.Kind)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	consumed := s.controller.Interact(kind)
	zlog.Debug().Msgf("interaction reported: kind=%s source=%s consumed=%v", kind, req.Msg.Source, consumed)

	return connect.NewResponse(&ReportInteractionResponse{
		Consumed: consumed,
		Unlocked: s.controller.Status().Unlocked,
	}), nil
}

// GetPlaybackStatus returns the controller status.
func (s *KioskService) GetPlaybackStatus(
	ctx context.Context,
	req *connect.Request[GetPlaybackStatusRequest],
) (*connect.Response[GetPlaybackStatusResponse], error) {
	return connect.NewResponse(&GetPlaybackStatusResponse{
		Status: playbackStatusToWire(s.controller.Status()),
	}), nil
}
