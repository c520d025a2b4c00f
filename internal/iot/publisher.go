package iot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"plate_reader/internal/domain"
)

// PublishAPI is the part of *iotdataplane.Client used by PlatePublisher.
type PublishAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// PlatePublisher sends every recorded plate to an MQTT topic through AWS IoT
// so gate controllers and displays can react to it.
type PlatePublisher struct {
	client PublishAPI
	topic  string
}

func NewPlatePublisher(client PublishAPI, topic string) *PlatePublisher {
	return &PlatePublisher{client: client, topic: topic}
}

func (p *PlatePublisher) PublishDetection(ctx context.Context, n domain.DetectionNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}
