package clob

import (
	"context"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
)

// WSClient wraps Client with a streaming order-book transport backed by a
// pooled set of websocket connections (pkg/websocket), hash-sharded across
// markets for load distribution.
type WSClient struct {
	*Client
	pool   *websocket.Pool
	logger *zap.Logger
}

// NewWSClient wraps an existing REST Client with a started websocket pool.
func NewWSClient(rest *Client, pool *websocket.Pool, logger *zap.Logger) *WSClient {
	return &WSClient{Client: rest, pool: pool, logger: logger}
}

// SubscribeBook subscribes the given tokens on the pool and forwards every
// multiplexed message to out until ctx is cancelled.
func (w *WSClient) SubscribeBook(ctx context.Context, tokenIDs []string, out chan<- *types.BookMessage) error {
	if err := w.pool.Subscribe(ctx, tokenIDs); err != nil {
		return types.NewEngineError(types.KindTransport, "venue.SubscribeBook", w.Name(), err)
	}

	go func() {
		msgs := w.pool.MessageChan()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg:
				default:
					w.logger.Warn("ws-client-dropped-message", zap.String("venue", w.Name()), zap.String("asset-id", msg.AssetID))
				}
			}
		}
	}()

	return nil
}
