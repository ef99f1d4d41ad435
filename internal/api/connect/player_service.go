package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
	"github.com/osa030/tubeplay/internal/api/playerv1/playerv1connect"
	"github.com/osa030/tubeplay/internal/app/playback"
	"github.com/osa030/tubeplay/internal/app/session"
	"github.com/osa030/tubeplay/internal/domain/track"
	"github.com/osa030/tubeplay/internal/infra/audio"
	"github.com/osa030/tubeplay/internal/infra/backend"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager) *PlayerService {
	return &PlayerService{session: session}
}

// Ensure PlayerService implements the interface.
var _ playerv1connect.PlayerServiceHandler = (*PlayerService)(nil)

// GetStatus returns the current player status.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	req *connect.Request[playerv1.GetStatusRequest],
) (*connect.Response[playerv1.GetStatusResponse], error) {
	return connect.NewResponse(&playerv1.GetStatusResponse{
		Status: s.session.GetStatus().Proto(),
	}), nil
}

// Search searches the backend.
func (s *PlayerService) Search(
	ctx context.Context,
	req *connect.Request[playerv1.SearchRequest],
) (*connect.Response[playerv1.SearchResponse], error) {
	tracks, err := s.session.Search(ctx, req.Msg.Query)
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&playerv1.SearchResponse{
		Tracks: session.TracksToProto(tracks),
	}), nil
}

// Enqueue appends a track to the queue.
func (s *PlayerService) Enqueue(
	ctx context.Context,
	req *connect.Request[playerv1.EnqueueRequest],
) (*connect.Response[playerv1.EnqueueResponse], error) {
	t := session.TrackFromProto(req.Msg.Track)
	if err := s.session.Enqueue(ctx, t); err != nil {
		return nil, s.toConnectError(err)
	}

	zlog.Info().Msgf("remote enqueue: track_id=%s title=%s", t.ID, t.Title)
	status := s.session.GetStatus()
	return connect.NewResponse(&playerv1.EnqueueResponse{
		QueueSize:    int32(len(status.Queue)),
		CurrentIndex: int32(status.CurrentIndex),
	}), nil
}

// Next plays the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[playerv1.NextRequest],
) (*connect.Response[playerv1.NextResponse], error) {
	if err := s.session.Next(ctx); err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&playerv1.NextResponse{
		Status: s.session.GetStatus().Proto(),
	}), nil
}

// Previous plays the previous track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[playerv1.PreviousRequest],
) (*connect.Response[playerv1.PreviousResponse], error) {
	if err := s.session.Previous(ctx); err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&playerv1.PreviousResponse{
		Status: s.session.GetStatus().Proto(),
	}), nil
}

// Jump plays the track at the requested index.
func (s *PlayerService) Jump(
	ctx context.Context,
	req *connect.Request[playerv1.JumpRequest],
) (*connect.Response[playerv1.JumpResponse], error) {
	if err := s.session.Jump(ctx, int(req.Msg.Index)); err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&playerv1.JumpResponse{
		Status: s.session.GetStatus().Proto(),
	}), nil
}

// TogglePause pauses or resumes playback.
func (s *PlayerService) TogglePause(
	ctx context.Context,
	req *connect.Request[playerv1.TogglePauseRequest],
) (*connect.Response[playerv1.TogglePauseResponse], error) {
	paused, err := s.session.TogglePause()
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&playerv1.TogglePauseResponse{Paused: paused}), nil
}

// SetVolume sets the output volume.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[playerv1.SetVolumeRequest],
) (*connect.Response[playerv1.SetVolumeResponse], error) {
	if err := s.session.SetVolume(req.Msg.Volume); err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&playerv1.SetVolumeResponse{
		Volume: s.session.GetStatus().Volume,
	}), nil
}

// Suggest returns suggested tracks that are not queued yet.
func (s *PlayerService) Suggest(
	ctx context.Context,
	req *connect.Request[playerv1.SuggestRequest],
) (*connect.Response[playerv1.SuggestResponse], error) {
	suggestions, err := s.session.Suggest(ctx, int(req.Msg.Count))
	if err != nil {
		return nil, s.toConnectError(err)
	}
	tracks := make([]track.Track, len(suggestions))
	for i, sg := range suggestions {
		tracks[i] = sg.Track
	}
	return connect.NewResponse(&playerv1.SuggestResponse{
		Tracks: session.TracksToProto(tracks),
	}), nil
}

// SubscribeNotifications sends the current state, then streams player
// notifications until the client goes away or the session closes.
func (s *PlayerService) SubscribeNotifications(
	ctx context.Context,
	req *connect.Request[playerv1.SubscribeNotificationsRequest],
	stream *connect.ServerStream[playerv1.Notification],
) error {
	notifManager := s.session.GetNotificationManager()

	initial := s.session.InitialState()
	initial.SequenceNo = notifManager.NextSequenceNo()
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

// toConnectError maps an error to a Connect error carrying the user-facing message.
func (s *PlayerService) toConnectError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, playback.ErrInvalidTrack),
		errors.Is(err, audio.ErrInvalidVolume),
		errors.Is(err, audio.ErrInvalidPosition),
		errors.Is(err, session.ErrQueryTooShort):
		code = connect.CodeInvalidArgument
	case errors.Is(err, playback.ErrBusy):
		code = connect.CodeAborted
	case errors.Is(err, playback.ErrTimeout), errors.Is(err, backend.ErrTimeout):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, audio.ErrNotPlaying), errors.Is(err, session.ErrClosed):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrStreamResolution),
		errors.Is(err, playback.ErrPlaybackStart),
		errors.Is(err, backend.ErrSearch):
		code = connect.CodeUnavailable
	}

	zlog.Debug().Msgf("rpc error: code=%s error=%v", code, err)
	return connect.NewError(code, errors.New(s.session.MessageFor(err)))
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[playerv1.Notification]
}

func (a *notificationStreamAdapter) Send(notification *playerv1.Notification) error {
	return a.stream.Send(notification)
}
