// Command notifier-lambda is the AWS Lambda variant of the payment reminder
// notifier, triggered by an MSK or self-managed Kafka event source on the
// storefront activity topic.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/notification"
)

// batchProcessor feeds one Lambda batch through the notification handler
type batchProcessor struct {
	handle kafka.MessageHandler
	log    *logrus.Entry
}

// Process handles every record of the batch. Malformed records are logged and
// skipped; any other failure fails the invocation so Lambda retries the
// batch, and the handler's redelivery check keeps sent reminders from going
// out twice.
func (p *batchProcessor) Process(ctx context.Context, ev events.KafkaEvent) error {
	msgs, bad := kafka.LambdaMessages(ev)
	for _, err := range bad {
		p.log.WithError(err).Warn("skipping undecodable record")
	}

	var failed []error
	for _, msg := range msgs {
		err := p.handle(ctx, msg.Key, msg.Value)
		switch {
		case err == nil:
		case errors.Is(err, notification.ErrMalformedEvent):
			p.log.WithError(err).WithField("offset", msg.Offset).Warn("skipping malformed event")
		default:
			failed = append(failed, fmt.Errorf("%s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err))
		}
	}

	p.log.WithFields(logrus.Fields{
		"records": len(msgs) + len(bad),
		"failed":  len(failed),
	}).Info("batch processed")
	return errors.Join(failed...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Component("notifier-lambda").WithError(err).Fatal("failed to load configuration")
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: "json"})
	log := logging.Component("notifier-lambda")

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	p := &batchProcessor{
		handle: notification.NewHandler(emailSvc).HandleEvent,
		log:    log,
	}

	log.WithField("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).Info("initialized")
	lambda.Start(p.Process)
}
