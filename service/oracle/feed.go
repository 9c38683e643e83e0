package oracle

import (
	"context"
	"fmt"

	"lever/core"
	"lever/pkg/id"
	"lever/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
)

type feed struct {
	config *core.Config
}

// NewFeed new price source backed by the configured oracle endpoint
func NewFeed(config *core.Config) core.PriceSource {
	return &feed{config: config}
}

// Observe pull the latest raw observation for a feed. Validation happens in
// the gateway, never here.
func (f *feed) Observe(ctx context.Context, feedID string) (*core.PriceObservation, error) {
	url := fmt.Sprintf("%s/api/v1/feeds/%s/latest", f.config.PriceOracle.EndPoint, feedID)
	logger.FromContext(ctx).Debugln("pull observation:", url)

	resp, err := resthttp.WithRequestID(ctx, id.GenTraceID()).Get(url)
	if err != nil {
		return nil, err
	}

	var obs core.PriceObservation
	if err := resthttp.ParseResponse(resp, &obs); err != nil {
		return nil, err
	}

	return &obs, nil
}
