// internal/leads/lead-intake/service.go
package leadintake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "taskflow-leads/internal/common/errors"
	"taskflow-leads/internal/common/logger"
	"taskflow-leads/internal/common/metrics"
	"taskflow-leads/internal/models"
	"taskflow-leads/internal/realtime/notifier"
)

const (
	Component = "lead-intake"

	notifyTimeout = 10 * time.Second
)

// LeadAdder stores a validated lead.
type LeadAdder interface {
	Add(ctx context.Context, candidate models.LeadFields) (models.Lead, error)
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// EmailSender delivers a plain-text mail.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Service handles direct lead submissions: store, broadcast, acknowledge.
type Service struct {
	store        LeadAdder
	publisher    notifier.Publisher
	sms          SMSSender
	businessName string
	email        EmailSender
	ownerEmail   string
	logger       logger.Logger
	pending      sync.WaitGroup
}

type Option func(*Service)

// WithSMSAcknowledgement sends a thank-you text to every submitted lead.
func WithSMSAcknowledgement(sender SMSSender, businessName string) Option {
	return func(s *Service) {
		s.sms = sender
		s.businessName = businessName
	}
}

// WithOwnerNotification mails the business owner about every submitted lead.
func WithOwnerNotification(sender EmailSender, ownerEmail string) Option {
	return func(s *Service) {
		s.email = sender
		s.ownerEmail = ownerEmail
	}
}

func NewService(store LeadAdder, publisher notifier.Publisher, log logger.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = notifier.Discard{}
	}
	s := &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.ForComponent(log, Component),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores the submission and publishes new_lead for it. Nothing is
// published when storing fails. The SMS acknowledgement and the owner mail run
// in the background and their failure never affects the result.
func (s *Service) Create(ctx context.Context, candidate models.LeadFields) (models.Lead, error) {
	lead, err := s.store.Add(ctx, candidate)
	if err != nil {
		return models.Lead{}, err
	}

	metrics.LeadsCreated.WithLabelValues(metrics.SourceForm).Inc()
	s.publisher.Publish(models.EventNewLead, lead)

	s.logger.Info("new lead", map[string]interface{}{
		"leadId": lead.ID.String(),
		"name":   lead.Name,
	})

	if s.sms != nil {
		s.background(lead, "SMS", func(ctx context.Context) error {
			return s.sms.SendSMS(ctx, lead.Phone, AcknowledgementMessage(lead.Name, s.businessName))
		})
	}
	if s.email != nil {
		s.background(lead, "email", func(ctx context.Context) error {
			return s.email.SendEmail(ctx, s.ownerEmail, OwnerSubject(lead), OwnerBody(lead))
		})
	}
	return lead, nil
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) background(lead models.Lead, channel string, send func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.logger.Error(channel+" send failed", map[string]interface{}{
				"leadId": lead.ID.String(),
				"error":  apperrors.NewNotificationSendFailedError(channel, err),
			})
			return
		}
		s.logger.Info(channel+" sent", map[string]interface{}{"leadId": lead.ID.String()})
	}()
}

// AcknowledgementMessage is the text sent to a lead after submission.
func AcknowledgementMessage(name, businessName string) string {
	return fmt.Sprintf("Hi %s, thanks for contacting %s! We'll be in touch.", name, businessName)
}

func OwnerSubject(lead models.Lead) string {
	return fmt.Sprintf("New lead: %s", lead.Name)
}

// OwnerBody lists the submitted fields, skipping empty optional ones.
func OwnerBody(lead models.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nPhone: %s\n", lead.Name, lead.Phone)
	for _, f := range []struct{ label, value string }{
		{"Service", lead.Service},
		{"Preferred", lead.Preferred},
		{"Notes", lead.Notes},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
		}
	}
	fmt.Fprintf(&b, "Received: %s\n", lead.CreatedAt.Format(time.RFC3339))
	return b.String()
}
