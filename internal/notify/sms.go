package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/homegrid/homegrid/internal/verification"
)

// SNSPublisher is the slice of the SNS client the sender needs.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender delivers verification codes as transactional SMS via AWS SNS.
type SMSSender struct {
	client SNSPublisher
}

// NewSMSSender wraps an SNS client.
func NewSMSSender(client SNSPublisher) *SMSSender {
	return &SMSSender{client: client}
}

// NewSNSClient builds an SNS client from the ambient AWS credential chain.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sns.NewFromConfig(awsCfg), nil
}

// Send publishes the code to the recipient's phone number. The SMS type
// attribute is forced to Transactional so carriers prioritise delivery.
func (s *SMSSender) Send(ctx context.Context, d verification.Dispatch) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(d.Recipient),
		Message:     aws.String(codeText(d)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish verification sms: %w", err)
	}
	return nil
}
