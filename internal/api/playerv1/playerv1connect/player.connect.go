// Package playerv1connect wires the tubeplay.player.v1.PlayerService to
// connectrpc.com/connect handlers and clients.
package playerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	playerv1 "github.com/osa030/tubeplay/internal/api/playerv1"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "tubeplay.player.v1.PlayerService"

// Procedure paths.
const (
	PlayerServiceGetStatusProcedure              = "/tubeplay.player.v1.PlayerService/GetStatus"
	PlayerServiceSearchProcedure                 = "/tubeplay.player.v1.PlayerService/Search"
	PlayerServiceEnqueueProcedure                = "/tubeplay.player.v1.PlayerService/Enqueue"
	PlayerServiceNextProcedure                   = "/tubeplay.player.v1.PlayerService/Next"
	PlayerServicePreviousProcedure               = "/tubeplay.player.v1.PlayerService/Previous"
	PlayerServiceJumpProcedure                   = "/tubeplay.player.v1.PlayerService/Jump"
	PlayerServiceTogglePauseProcedure            = "/tubeplay.player.v1.PlayerService/TogglePause"
	PlayerServiceSetVolumeProcedure              = "/tubeplay.player.v1.PlayerService/SetVolume"
	PlayerServiceSuggestProcedure                = "/tubeplay.player.v1.PlayerService/Suggest"
	PlayerServiceSubscribeNotificationsProcedure = "/tubeplay.player.v1.PlayerService/SubscribeNotifications"
)

// WithJSON returns the option both handlers and clients need to exchange
// playerv1 messages.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// PlayerServiceHandler is implemented by the PlayerService server.
type PlayerServiceHandler interface {
	GetStatus(context.Context, *connect.Request[playerv1.GetStatusRequest]) (*connect.Response[playerv1.GetStatusResponse], error)
	Search(context.Context, *connect.Request[playerv1.SearchRequest]) (*connect.Response[playerv1.SearchResponse], error)
	Enqueue(context.Context, *connect.Request[playerv1.EnqueueRequest]) (*connect.Response[playerv1.EnqueueResponse], error)
	Next(context.Context, *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.NextResponse], error)
	Previous(context.Context, *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.PreviousResponse], error)
	Jump(context.Context, *connect.Request[playerv1.JumpRequest]) (*connect.Response[playerv1.JumpResponse], error)
	TogglePause(context.Context, *connect.Request[playerv1.TogglePauseRequest]) (*connect.Response[playerv1.TogglePauseResponse], error)
	SetVolume(context.Context, *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.SetVolumeResponse], error)
	Suggest(context.Context, *connect.Request[playerv1.SuggestRequest]) (*connect.Response[playerv1.SuggestResponse], error)
	SubscribeNotifications(context.Context, *connect.Request[playerv1.SubscribeNotificationsRequest], *connect.ServerStream[playerv1.Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	handlers := map[string]http.Handler{
		PlayerServiceGetStatusProcedure:   connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...),
		PlayerServiceSearchProcedure:      connect.NewUnaryHandler(PlayerServiceSearchProcedure, svc.Search, opts...),
		PlayerServiceEnqueueProcedure:     connect.NewUnaryHandler(PlayerServiceEnqueueProcedure, svc.Enqueue, opts...),
		PlayerServiceNextProcedure:        connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...),
		PlayerServicePreviousProcedure:    connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...),
		PlayerServiceJumpProcedure:        connect.NewUnaryHandler(PlayerServiceJumpProcedure, svc.Jump, opts...),
		PlayerServiceTogglePauseProcedure: connect.NewUnaryHandler(PlayerServiceTogglePauseProcedure, svc.TogglePause, opts...),
		PlayerServiceSetVolumeProcedure:   connect.NewUnaryHandler(PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...),
		PlayerServiceSuggestProcedure:     connect.NewUnaryHandler(PlayerServiceSuggestProcedure, svc.Suggest, opts...),
		PlayerServiceSubscribeNotificationsProcedure: connect.NewServerStreamHandler(
			PlayerServiceSubscribeNotificationsProcedure, svc.SubscribeNotifications, opts...,
		),
	}

	return "/" + PlayerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// PlayerServiceClient is a client for the PlayerService.
type PlayerServiceClient interface {
	GetStatus(context.Context, *connect.Request[playerv1.GetStatusRequest]) (*connect.Response[playerv1.GetStatusResponse], error)
	Search(context.Context, *connect.Request[playerv1.SearchRequest]) (*connect.Response[playerv1.SearchResponse], error)
	Enqueue(context.Context, *connect.Request[playerv1.EnqueueRequest]) (*connect.Response[playerv1.EnqueueResponse], error)
	Next(context.Context, *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.NextResponse], error)
	Previous(context.Context, *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.PreviousResponse], error)
	Jump(context.Context, *connect.Request[playerv1.JumpRequest]) (*connect.Response[playerv1.JumpResponse], error)
	TogglePause(context.Context, *connect.Request[playerv1.TogglePauseRequest]) (*connect.Response[playerv1.TogglePauseResponse], error)
	SetVolume(context.Context, *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.SetVolumeResponse], error)
	Suggest(context.Context, *connect.Request[playerv1.SuggestRequest]) (*connect.Response[playerv1.SuggestResponse], error)
	SubscribeNotifications(context.Context, *connect.Request[playerv1.SubscribeNotificationsRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error)
}

type playerServiceClient struct {
	getStatus              *connect.Client[playerv1.GetStatusRequest, playerv1.GetStatusResponse]
	search                 *connect.Client[playerv1.SearchRequest, playerv1.SearchResponse]
	enqueue                *connect.Client[playerv1.EnqueueRequest, playerv1.EnqueueResponse]
	next                   *connect.Client[playerv1.NextRequest, playerv1.NextResponse]
	previous               *connect.Client[playerv1.PreviousRequest, playerv1.PreviousResponse]
	jump                   *connect.Client[playerv1.JumpRequest, playerv1.JumpResponse]
	togglePause            *connect.Client[playerv1.TogglePauseRequest, playerv1.TogglePauseResponse]
	setVolume              *connect.Client[playerv1.SetVolumeRequest, playerv1.SetVolumeResponse]
	suggest                *connect.Client[playerv1.SuggestRequest, playerv1.SuggestResponse]
	subscribeNotifications *connect.Client[playerv1.SubscribeNotificationsRequest, playerv1.Notification]
}

// NewPlayerServiceClient constructs a client for the PlayerService at baseURL
// (for example, http://127.0.0.1:8090).
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &playerServiceClient{
		getStatus: connect.NewClient[playerv1.GetStatusRequest, playerv1.GetStatusResponse](
			httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		search: connect.NewClient[playerv1.SearchRequest, playerv1.SearchResponse](
			httpClient, baseURL+PlayerServiceSearchProcedure, opts...),
		enqueue: connect.NewClient[playerv1.EnqueueRequest, playerv1.EnqueueResponse](
			httpClient, baseURL+PlayerServiceEnqueueProcedure, opts...),
		next: connect.NewClient[playerv1.NextRequest, playerv1.NextResponse](
			httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		previous: connect.NewClient[playerv1.PreviousRequest, playerv1.PreviousResponse](
			httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		jump: connect.NewClient[playerv1.JumpRequest, playerv1.JumpResponse](
			httpClient, baseURL+PlayerServiceJumpProcedure, opts...),
		togglePause: connect.NewClient[playerv1.TogglePauseRequest, playerv1.TogglePauseResponse](
			httpClient, baseURL+PlayerServiceTogglePauseProcedure, opts...),
		setVolume: connect.NewClient[playerv1.SetVolumeRequest, playerv1.SetVolumeResponse](
			httpClient, baseURL+PlayerServiceSetVolumeProcedure, opts...),
		suggest: connect.NewClient[playerv1.SuggestRequest, playerv1.SuggestResponse](
			httpClient, baseURL+PlayerServiceSuggestProcedure, opts...),
		subscribeNotifications: connect.NewClient[playerv1.SubscribeNotificationsRequest, playerv1.Notification](
			httpClient, baseURL+PlayerServiceSubscribeNotificationsProcedure, opts...),
	}
}

func (c *playerServiceClient) GetStatus(ctx context.Context, req *connect.Request[playerv1.GetStatusRequest]) (*connect.Response[playerv1.GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *playerServiceClient) Search(ctx context.Context, req *connect.Request[playerv1.SearchRequest]) (*connect.Response[playerv1.SearchResponse], error) {
	return c.search.CallUnary(ctx, req)
}

func (c *playerServiceClient) Enqueue(ctx context.Context, req *connect.Request[playerv1.EnqueueRequest]) (*connect.Response[playerv1.EnqueueResponse], error) {
	return c.enqueue.CallUnary(ctx, req)
}

func (c *playerServiceClient) Next(ctx context.Context, req *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.NextResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *playerServiceClient) Previous(ctx context.Context, req *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.PreviousResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *playerServiceClient) Jump(ctx context.Context, req *connect.Request[playerv1.JumpRequest]) (*connect.Response[playerv1.JumpResponse], error) {
	return c.jump.CallUnary(ctx, req)
}

func (c *playerServiceClient) TogglePause(ctx context.Context, req *connect.Request[playerv1.TogglePauseRequest]) (*connect.Response[playerv1.TogglePauseResponse], error) {
	return c.togglePause.CallUnary(ctx, req)
}

func (c *playerServiceClient) SetVolume(ctx context.Context, req *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.SetVolumeResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

func (c *playerServiceClient) Suggest(ctx context.Context, req *connect.Request[playerv1.SuggestRequest]) (*connect.Response[playerv1.SuggestResponse], error) {
	return c.suggest.CallUnary(ctx, req)
}

func (c *playerServiceClient) SubscribeNotifications(ctx context.Context, req *connect.Request[playerv1.SubscribeNotificationsRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error) {
	return c.subscribeNotifications.CallServerStream(ctx, req)
}
