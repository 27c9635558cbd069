package reminder

import (
	"context"

	"github.com/google/uuid"

	"github.com/Nathech23/High-Five/pkg/logger"
	"github.com/Nathech23/High-Five/pkg/types"
)

// LogProvider is a communication provider that records outgoing messages in
// the service log instead of calling an external gateway. It is the default
// provider for development and test environments; production deployments plug
// a gateway-backed implementation into the same interface.
type LogProvider struct {
	logger *logger.Logger
}

// NewLogProvider creates a new logging provider
func NewLogProvider(log *logger.Logger) *LogProvider {
	return &LogProvider{logger: log}
}

// Send logs the message and returns a generated provider reference. The
// context deadline is honored so dispatch timeout behavior can be exercised
// end to end.
func (p *LogProvider) Send(ctx context.Context, endpoint string, channel types.Channel, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &types.TransportError{Channel: channel, Err: err}
	}

	ref := uuid.New().String()
	p.logger.WithFields(map[string]interface{}{
		"channel":            string(channel),
		"endpoint":           endpoint,
		"provider_reference": ref,
		"length":             len(text),
	}).Info("Message handed to provider")

	return ref, nil
}
