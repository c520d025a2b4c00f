package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

var errMalformedRecord = errors.New("malformed detection record")

// SQSConsumer drains queued detection records into the repository. A message
// is deleted only after it was appended (or found to be a duplicate or
// unparseable); otherwise it becomes visible again after the timeout.
type SQSConsumer struct {
	sqsClient  SQSAPI
	queueURL   string
	repo       repository.DetectionRepository
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, repo repository.DetectionRepository, logger *slog.Logger) *SQSConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		repo:       repo,
		logger:     logger.With("component", "sqs_consumer"),
		retryDelay: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.Info("listening", "queue", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context cancelled, stopping")
			return
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(c.queueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       20,
			VisibilityTimeout:     60,
			MessageAttributeNames: []string{recordIDAttribute},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("receive failed", "error", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, message := range result.Messages {
			if message.Body == nil {
				c.logger.Warn("empty message body, deleting")
				c.deleteMessage(ctx, message.ReceiptHandle)
				continue
			}
			err := c.handle(ctx, *message.Body)
			switch {
			case err == nil, errors.Is(err, repository.ErrDuplicateEntry):
				c.deleteMessage(ctx, message.ReceiptHandle)
			case errors.Is(err, errMalformedRecord):
				c.logger.Error("dropping malformed message", "message_id", aws.ToString(message.MessageId), "error", err)
				c.deleteMessage(ctx, message.ReceiptHandle)
			default:
				c.logger.Error("append failed, will retry after visibility timeout",
					"message_id", aws.ToString(message.MessageId), "error", err)
			}
		}
	}
}

func (c *SQSConsumer) handle(ctx context.Context, body string) error {
	var rec domain.DetectionRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return fmt.Errorf("%w: %v", errMalformedRecord, err)
	}
	if rec.ID == "" || rec.PlateText == "" || rec.Timestamp == "" {
		return fmt.Errorf("%w: missing id, plate_text or timestamp", errMalformedRecord)
	}
	if err := c.repo.Append(ctx, &rec); err != nil {
		return err
	}
	c.logger.Debug("record appended", "record_id", rec.ID)
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		c.logger.Warn("receipt handle is empty, cannot delete message")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.Error("delete failed", "error", err)
	}
}
