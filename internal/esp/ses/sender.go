// Package ses adapts AWS SES v2 as an alternative campaign gateway.
package ses

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/leadconvert/leadconvert/internal/domain"
	"github.com/leadconvert/leadconvert/internal/pkg/logger"
)

// API is the subset of the SES v2 client the sender uses.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Options configures the SES sender. Empty keys use the default AWS
// credential chain.
type Options struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	ConfigurationSet string
}

// Sender delivers campaign messages through SES. SES has no multi-recipient
// personalization, so each address is a separate SendEmail call.
type Sender struct {
	client    API
	configSet string
}

// NewSender loads AWS configuration and builds an SES client.
func NewSender(ctx context.Context, opts Options) (*Sender, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return NewWithClient(sesv2.NewFromConfig(cfg), opts.ConfigurationSet), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, configurationSet string) *Sender {
	return &Sender{client: client, configSet: configurationSet}
}

func (s *Sender) Name() string { return string(domain.ESPSES) }

// Send stops at the first rejected address; earlier addresses have already
// been accepted by SES at that point.
func (s *Sender) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.DispatchResult, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("ses: no recipients")
	}

	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
	}

	var first string
	for i, addr := range msg.To {
		in := &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(from),
			Destination:      &types.Destination{ToAddresses: []string{addr}},
			Content: &types.EmailContent{
				Simple: &types.Message{
					Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
					Body: &types.Body{
						Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					},
				},
			},
			EmailTags: []types.MessageTag{
				{Name: aws.String("campaign_id"), Value: aws.String(msg.CampaignID)},
			},
		}
		if msg.Text != "" {
			in.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
		}
		if s.configSet != "" {
			in.ConfigurationSetName = aws.String(s.configSet)
		}

		out, err := s.client.SendEmail(ctx, in)
		if err != nil {
			logger.Error("ses: send failed", "campaign_id", msg.CampaignID, "recipient", addr, "accepted", i, "error", err)
			return nil, fmt.Errorf("ses: send: %w", err)
		}
		if first == "" && out.MessageId != nil {
			first = *out.MessageId
		}
	}

	logger.Info("ses: sent", "campaign_id", msg.CampaignID, "recipients", len(msg.To), "message_id", first)
	return &domain.DispatchResult{
		MessageID: first,
		ESPType:   domain.ESPSES,
		Accepted:  len(msg.To),
		SentAt:    time.Now().UTC(),
	}, nil
}
