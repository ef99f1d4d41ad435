// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/tubeplay/internal/api/playerv1/playerv1connect"
)

const (
	// RemoteTokenHeader is the header name for the remote-control token.
	RemoteTokenHeader = "X-Remote-Token"
)

// controlProcedures change the player and require the remote token.
var controlProcedures = map[string]bool{
	playerv1connect.PlayerServiceEnqueueProcedure:     true,
	playerv1connect.PlayerServiceNextProcedure:        true,
	playerv1connect.PlayerServicePreviousProcedure:    true,
	playerv1connect.PlayerServiceJumpProcedure:        true,
	playerv1connect.PlayerServiceTogglePauseProcedure: true,
	playerv1connect.PlayerServiceSetVolumeProcedure:   true,
}

// NewRemoteAuthInterceptor creates an interceptor that validates the remote
// token on control procedures. Read-only procedures pass through.
func NewRemoteAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !controlProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			got := req.Header().Get(RemoteTokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			return next(ctx, req)
		}
	}
}
