package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	snsiface.SNSAPI
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) PublishWithContext(_ aws.Context, in *sns.PublishInput, _ ...request.Option) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestSNSPublisher_Publish(t *testing.T) {
	api := &fakeSNS{}
	p := NewSNSPublisher(api, "arn:aws:sns:ap-south-1:123:clinic-events")

	amended := true
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.Publish(context.Background(), Event{Type: PatientFinalChoices, PatientID: 7, Ref: 42, Amended: &amended, OccurredAt: at})
	require.NoError(t, err)

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "arn:aws:sns:ap-south-1:123:clinic-events", aws.StringValue(in.TopicArn))
	assert.Equal(t, PatientFinalChoices, aws.StringValue(in.MessageAttributes["event_type"].StringValue))
	assert.Equal(t, "String", aws.StringValue(in.MessageAttributes["event_type"].DataType))

	var got Event
	require.NoError(t, json.Unmarshal([]byte(aws.StringValue(in.Message)), &got))
	assert.Equal(t, int64(7), got.PatientID)
	assert.Equal(t, int64(42), got.Ref)
	require.NotNil(t, got.Amended)
	assert.True(t, *got.Amended)
	assert.True(t, at.Equal(got.OccurredAt))
}

func TestSNSPublisher_StampsOccurredAt(t *testing.T) {
	api := &fakeSNS{}
	require.NoError(t, NewSNSPublisher(api, "arn").Publish(context.Background(), Event{Type: BillCreated}))

	var got Event
	require.NoError(t, json.Unmarshal([]byte(aws.StringValue(api.inputs[0].Message)), &got))
	assert.False(t, got.OccurredAt.IsZero())
}

func TestSNSPublisher_Error(t *testing.T) {
	api := &fakeSNS{err: errors.New("throttled")}
	err := NewSNSPublisher(api, "arn").Publish(context.Background(), Event{Type: BillCreated})
	assert.ErrorContains(t, err, "throttled")
}

func TestEmit_SwallowsErrors(t *testing.T) {
	p := &recordingPublisher{err: errors.New("down")}
	Emit(context.Background(), p, zerolog.Nop(), Event{Type: PatientCreated, PatientID: 1})
	assert.Len(t, p.events, 1)

	Emit(context.Background(), nil, zerolog.Nop(), Event{Type: PatientCreated})
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{Type: PatientCreated}))
}
