// Package notify feeds ticket lifecycle events to an external PubNub
// channel for staff dashboards. The feed is optional and strictly
// best-effort.
package notify

import (
	"time"

	pubnub "github.com/pubnub/go"
	"go.uber.org/zap"

	"salesbot/config"
)

type Publisher struct {
	pn      *pubnub.PubNub
	channel string
	log     *zap.Logger
}

// New returns nil when no publish key is configured; a nil *Publisher
// is a valid no-op publisher.
func New(cfg *config.Config, log *zap.Logger) *Publisher {
	if cfg.PubNubPublishKey == "" {
		return nil
	}

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	return &Publisher{
		pn:      pubnub.NewPubNub(pnConfig),
		channel: cfg.EventsChannel,
		log:     log,
	}
}

// Publish fires the event without blocking the caller. Failures are
// logged and dropped.
func (p *Publisher) Publish(event string, fields map[string]any) {
	if p == nil {
		return
	}

	message := map[string]any{
		"type":      event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		message[k] = v
	}

	go func() {
		_, _, err := p.pn.Publish().
			Channel(p.channel).
			Message(message).
			Execute()
		if err != nil {
			p.log.Warn("event publish failed", zap.String("event", event), zap.Error(err))
		}
	}()
}
