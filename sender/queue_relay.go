package sender

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/yvetteluxe63/yvetteluxe/pkg/aws"
	"go.uber.org/zap"
)

// SNSRelay publishes mails as JSON envelopes to a topic; a subscriber does the delivery.
type SNSRelay struct {
	publisher awspkg.SNSPublisher
	topicArn  string
}

func NewSNSRelay(publisher awspkg.SNSPublisher, topicArn string) (*SNSRelay, error) {
	if topicArn == "" {
		return nil, fmt.Errorf("MAIL_SNS_TOPIC_ARN not set")
	}
	return &SNSRelay{publisher: publisher, topicArn: topicArn}, nil
}

func (r *SNSRelay) Send(ctx context.Context, recipient, subject string, fields map[string]string) error {
	data, err := Envelope{Recipient: recipient, Subject: subject, Fields: fields}.Marshal()
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, r.topicArn, data)
}

// QueueSender is satisfied by pkg/aws.SQSQueue.
type QueueSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSRelay enqueues mails for QueueWorker.
type SQSRelay struct {
	queue QueueSender
}

func NewSQSRelay(queue QueueSender) *SQSRelay {
	return &SQSRelay{queue: queue}
}

func (r *SQSRelay) Send(ctx context.Context, recipient, subject string, fields map[string]string) error {
	data, err := Envelope{Recipient: recipient, Subject: subject, Fields: fields}.Marshal()
	if err != nil {
		return err
	}
	return r.queue.SendMessage(ctx, string(data))
}

// QueueWorker drains queued envelopes into a delivering relay (normally SMTP).
type QueueWorker struct {
	relay  MailRelay
	logger *zap.Logger
}

func NewQueueWorker(relay MailRelay, logger *zap.Logger) *QueueWorker {
	return &QueueWorker{relay: relay, logger: logger}
}

// Handle is an awspkg.MessageHandler.
func (w *QueueWorker) Handle(ctx context.Context, body string) error {
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		// poison message: drop it rather than redeliver forever
		w.logger.Error("dropping malformed mail envelope", zap.Error(err))
		return nil
	}
	if err := w.relay.Send(ctx, env.Recipient, env.Subject, env.Fields); err != nil {
		return fmt.Errorf("deliver %q: %w", env.Subject, err)
	}
	w.logger.Info("mail delivered", zap.String("subject", env.Subject))
	return nil
}

// LogRelay only logs; used when no relay is configured.
type LogRelay struct {
	logger *zap.Logger
}

func NewLogRelay(logger *zap.Logger) *LogRelay {
	return &LogRelay{logger: logger}
}

func (r *LogRelay) Send(_ context.Context, recipient, subject string, fields map[string]string) error {
	r.logger.Info("mail relay disabled, dropping mail",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.Int("fields", len(fields)),
	)
	return nil
}
