package notifier

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// LoadAWSConfig loads the default AWS config (env, shared config, IAM role).
func LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// SNSClient publishes messages to an SNS topic.
type SNSClient struct {
	client *sns.Client
}

// NewSNSClient creates an SNSClient from an AWS config.
func NewSNSClient(cfg aws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish sends a message to the given topic ARN.
func (c *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	_, err := c.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicArn),
		Message:  aws.String(string(message)),
	})
	return err
}
