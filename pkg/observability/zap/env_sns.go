package zap

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type EnvironmentErrorNotificationsOptions struct {
	TopicARNEnvVars []string
	SubjectEnvVars  []string

	// AWSConfig skips default config loading when set.
	AWSConfig *aws.Config
}

// WithEnvironmentErrorNotifications publishes error-level entries to the SNS topic named by the
// first non-empty TopicARNEnvVars entry. It is a no-op when none is set.
func WithEnvironmentErrorNotifications(ctx context.Context, config EnvironmentErrorNotificationsOptions) Option {
	return func(opts *loggerOptions) {
		topicARN := firstEnvValue(config.TopicARNEnvVars...)
		if topicARN == "" {
			return
		}

		if ctx == nil {
			ctx = context.Background()
		}

		var awsCfg aws.Config
		if config.AWSConfig != nil {
			awsCfg = *config.AWSConfig
		} else {
			loaded, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				opts.initErr = err
				return
			}
			awsCfg = loaded
		}

		opts.notifier = NewSNSNotifier(sns.NewFromConfig(awsCfg), topicARN, SNSNotifierOptions{
			Subject: firstEnvValue(config.SubjectEnvVars...),
		})
	}
}

func DefaultEnvironmentErrorNotifications() EnvironmentErrorNotificationsOptions {
	return EnvironmentErrorNotificationsOptions{
		TopicARNEnvVars: []string{
			"STATICTHEORY_ERROR_NOTIFICATIONS_TOPIC_ARN",
			"ERROR_NOTIFICATIONS_TOPIC_ARN",
			"SNS_ERROR_TOPIC_ARN",
		},
		SubjectEnvVars: []string{
			"STATICTHEORY_ERROR_NOTIFICATIONS_SUBJECT",
		},
	}
}

func firstEnvValue(keys ...string) string {
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
