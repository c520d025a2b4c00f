package iot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"plate_reader/internal/domain"
)

// SQSAPI is the part of *sqs.Client used by the writer and the consumer.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

const recordIDAttribute = "record_id"

// SQSWriter hands records to a queue instead of the database. The record is
// considered written once SQS accepts the message; SQSConsumer appends it.
type SQSWriter struct {
	client   SQSAPI
	queueURL string
}

func NewSQSWriter(client SQSAPI, queueURL string) *SQSWriter {
	return &SQSWriter{client: client, queueURL: queueURL}
}

func (w *SQSWriter) Write(ctx context.Context, rec *domain.DetectionRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	_, err = w.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(w.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			recordIDAttribute: {DataType: aws.String("String"), StringValue: aws.String(rec.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("send record %s to queue: %w", rec.ID, err)
	}
	return nil
}
