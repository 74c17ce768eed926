package fanout

import (
	"context"

	"parley/pkg/logger"
)

// LogGateway is the default Gateway when no push endpoint is wired: it
// records events at debug level and always succeeds. Deployments replace
// it with the real socket/push collaborator.
type LogGateway struct{}

func (LogGateway) Publish(_ context.Context, audience, event string, payload []byte) error {
	logger.Debug("fanout_event", "audience", audience, "event", event, "bytes", len(payload))
	return nil
}
