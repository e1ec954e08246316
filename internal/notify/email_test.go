package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "test@example.com"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)
}

func TestSendGridSender_Send(t *testing.T) {
	var captured *mail.SGMailV3
	sender := newSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, func(_ context.Context, email *mail.SGMailV3) (int, string, error) {
		captured = email
		return 202, "", nil
	}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "jane@example.com", Subject: "Appointment Confirmation", Body: "Hi Jane"})
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "Appointment Confirmation", captured.Subject)
	assert.Equal(t, "clinic@example.com", captured.From.Address)
}

func TestSendGridSender_SendErrorStatus(t *testing.T) {
	sender := newSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, func(context.Context, *mail.SGMailV3) (int, string, error) {
		return 401, `{"errors":[{"message":"bad key"}]}`, nil
	}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "jane@example.com", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "status 401")
}

func TestSendGridSender_SendTransportError(t *testing.T) {
	sender := newSendGridSender(SendGridConfig{}, func(context.Context, *mail.SGMailV3) (int, string, error) {
		return 0, "", errors.New("dial tcp: timeout")
	}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "jane@example.com"})
	assert.ErrorContains(t, err, "dial tcp")
}

func TestSendGridSender_NilReceiver(t *testing.T) {
	var sender *SendGridSender
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "a@b.co"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilWithoutClientOrFrom(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{FromEmail: "a@b.co"}, nil))
	assert.Nil(t, NewSESSender(&sesv2.Client{}, SESConfig{}, nil))
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	sender := newSESSender(fake, SESConfig{FromEmail: "clinic@example.com", FromName: "Clinic"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "jane@example.com", Subject: "Confirmed", Body: "Hi"})
	require.NoError(t, err)
	require.NotNil(t, fake.input)
	assert.Equal(t, "Clinic <clinic@example.com>", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"jane@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(fake.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, fake.input.Content.Simple.Body.Html)
}

func TestSESSender_SendError(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "clinic@example.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "jane@example.com", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "throttled")
}
