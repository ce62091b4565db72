package notification

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/samber/oops"
)

const (
	smsTypeAttribute     = "AWS.SNS.SMS.SMSType"
	senderIDAttribute    = "AWS.SNS.SMS.SenderID"
	smsTypeTransactional = "Transactional"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier sends SMS messages directly to phone numbers through AWS SNS.
type SNSNotifier struct {
	client   snsPublisher
	senderID string
}

// NewSNSNotifier loads the default AWS credential chain for region.
func NewSNSNotifier(ctx context.Context, region, senderID string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, oops.Code("SNS_CONFIG_FAILED").With("region", region).Wrap(err)
	}
	return newSNSNotifier(sns.NewFromConfig(cfg), senderID), nil
}

func newSNSNotifier(client snsPublisher, senderID string) *SNSNotifier {
	return &SNSNotifier{client: client, senderID: senderID}
}

// Send publishes message.Body as a transactional SMS to message.Destination.
func (n *SNSNotifier) Send(ctx context.Context, message Message) error {
	attrs := map[string]types.MessageAttributeValue{
		smsTypeAttribute: {
			DataType:    aws.String("String"),
			StringValue: aws.String(smsTypeTransactional),
		},
	}
	if n.senderID != "" {
		attrs[senderIDAttribute] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(n.senderID),
		}
	}

	_, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(message.Destination),
		Message:           aws.String(message.Body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return oops.Code("SNS_PUBLISH_FAILED").With("kind", message.Kind).Wrap(err)
	}
	return nil
}
