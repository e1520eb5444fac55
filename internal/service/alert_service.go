package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// AlertService mirrors domain events onto outbound side channels
// (email, webhook). Delivery is stubbed; the in-app outbox is written
// transactionally elsewhere and does not depend on this service.
type AlertService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewAlertService creates the service.
func NewAlertService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *AlertService {
	return &AlertService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AlertService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.handleTicketUpdated)
	a.dispatcher.Subscribe(events.EventTicketReminded, a.handleTicketReminded)
	a.dispatcher.Subscribe(events.EventAccountRegistered, a.handleAccountRegistered)
}

func (a *AlertService) handleTicketCreated(ctx context.Context, event events.Event) error {
	a.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	a.sendEmailStub(ctx, event)
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AlertService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	a.logger.Info("TicketUpdated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	return nil
}

func (a *AlertService) handleTicketReminded(ctx context.Context, event events.Event) error {
	a.logger.Info("TicketReminded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	a.sendEmailStub(ctx, event)
	return nil
}

func (a *AlertService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	a.logger.Info("AccountRegistered", zap.String("actor", event.Actor), zap.Any("payload", event.Payload))
	return nil
}

func (a *AlertService) sendEmailStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.EmailFrom) == "" {
		return
	}
	a.logger.Debug("sendEmailStub",
		zap.String("from", a.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (a *AlertService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
