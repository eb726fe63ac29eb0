// Package events announces record changes (new patients, saved
// prescriptions, bills) to downstream consumers over SNS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/rs/zerolog"
)

const (
	PatientCreated        = "patient.created"
	PatientVersioned      = "patient.versioned"
	PatientFinalChoices   = "patient.final_choices"
	PrescriptionSaved     = "prescription.saved"
	BillCreated           = "bill.created"
	PharmacyBillCreated   = "pharmacy_bill.created"
	eventTypeAttribute    = "event_type"
	defaultPublishTimeout = 5 * time.Second
)

type Event struct {
	Type       string    `json:"type"`
	PatientID  int64     `json:"patient_id,omitempty"`
	Ref        int64     `json:"ref,omitempty"`
	Amended    *bool     `json:"amended,omitempty"`
	URL        string    `json:"url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event. Used when no topic is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type SNSPublisher struct {
	api      snsiface.SNSAPI
	topicARN string
	timeout  time.Duration
}

func NewSNSPublisher(api snsiface.SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{api: api, topicARN: topicARN, timeout: defaultPublishTimeout}
}

func (p *SNSPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err = p.api.PublishWithContext(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			eventTypeAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(e.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish event %s to %s: %w", e.Type, p.topicARN, err)
	}
	return nil
}

// Emit publishes e and logs a failure instead of returning it; a request
// never fails because an announcement could not be delivered.
func Emit(ctx context.Context, p Publisher, log zerolog.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event_type", e.Type).Int64("patient_id", e.PatientID).Msg("event publish failed")
	}
}
