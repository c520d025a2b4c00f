package iot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"gopkg.in/guregu/null.v4"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

type fakeQueue struct {
	mu       sync.Mutex
	sent     []*sqs.SendMessageInput
	batches  [][]types.Message
	deleted  []string
	sendErr  error
	received chan struct{}
}

func (q *fakeQueue) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sendErr != nil {
		return nil, q.sendErr
	}
	q.sent = append(q.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (q *fakeQueue) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	if len(q.batches) > 0 {
		batch := q.batches[0]
		q.batches = q.batches[1:]
		q.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	q.mu.Unlock()
	select {
	case q.received <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeRepo struct {
	mu      sync.Mutex
	records []domain.DetectionRecord
	errFor  map[string]error
}

func (r *fakeRepo) Append(_ context.Context, rec *domain.DetectionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errFor[rec.ID]; err != nil {
		return err
	}
	r.records = append(r.records, *rec)
	return nil
}

func sampleRecord(id string) *domain.DetectionRecord {
	return &domain.DetectionRecord{
		ID:          id,
		PlateText:   "B1234XYZ",
		Timestamp:   "2025-03-14 08:02:03 WIB",
		BoundingBox: [4]int{100, 100, 300, 250},
		Confidence:  null.FloatFrom(0.9),
	}
}

func message(receipt, body string) types.Message {
	return types.Message{MessageId: aws.String(receipt), ReceiptHandle: aws.String(receipt), Body: aws.String(body)}
}

func TestSQSWriter_Write(t *testing.T) {
	q := &fakeQueue{}
	w := NewSQSWriter(q, "https://sqs.example/queue")

	if err := w.Write(context.Background(), sampleRecord("r-1")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(q.sent) != 1 {
		t.Fatalf("sent %d messages", len(q.sent))
	}
	in := q.sent[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.example/queue" {
		t.Errorf("queue url = %s", aws.ToString(in.QueueUrl))
	}
	if aws.ToString(in.MessageAttributes[recordIDAttribute].StringValue) != "r-1" {
		t.Errorf("record_id attribute missing")
	}
	var got domain.DetectionRecord
	if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &got); err != nil {
		t.Fatalf("body is not a record: %v", err)
	}
	if got != *sampleRecord("r-1") {
		t.Errorf("body = %+v", got)
	}

	q.sendErr = errors.New("queue down")
	if err := w.Write(context.Background(), sampleRecord("r-2")); !errors.Is(err, q.sendErr) {
		t.Errorf("Write() error = %v", err)
	}
}

func TestSQSConsumer_Start(t *testing.T) {
	good, _ := json.Marshal(sampleRecord("ok"))
	dup, _ := json.Marshal(sampleRecord("dup"))
	failing, _ := json.Marshal(sampleRecord("fail"))

	q := &fakeQueue{
		received: make(chan struct{}, 1),
		batches: [][]types.Message{{
			message("h-ok", string(good)),
			message("h-dup", string(dup)),
			message("h-fail", string(failing)),
			message("h-bad", "{not json"),
			{MessageId: aws.String("h-nil"), ReceiptHandle: aws.String("h-nil")},
		}},
	}
	repo := &fakeRepo{errFor: map[string]error{
		"dup":  repository.ErrDuplicateEntry,
		"fail": errors.New("db down"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSQSConsumer(q, "queue", repo, nil).Start(ctx)
		close(done)
	}()

	select {
	case <-q.received:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the batch")
	}
	cancel()
	<-done

	if len(repo.records) != 1 || repo.records[0].ID != "ok" {
		t.Errorf("appended = %+v", repo.records)
	}
	want := map[string]bool{"h-ok": true, "h-dup": true, "h-bad": true, "h-nil": true}
	if len(q.deleted) != len(want) {
		t.Fatalf("deleted = %v", q.deleted)
	}
	for _, h := range q.deleted {
		if !want[h] {
			t.Errorf("unexpected delete of %s", h)
		}
	}
}

type fakePublisher struct {
	in  *iotdataplane.PublishInput
	err error
}

func (f *fakePublisher) Publish(_ context.Context, in *iotdataplane.PublishInput, _ ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error) {
	f.in = in
	return &iotdataplane.PublishOutput{}, f.err
}

func TestPlatePublisher_PublishDetection(t *testing.T) {
	api := &fakePublisher{}
	p := NewPlatePublisher(api, "plate_reader/detections")
	n := domain.NewDetectionNotification(sampleRecord("r-9"), time.Unix(0, 0))

	if err := p.PublishDetection(context.Background(), n); err != nil {
		t.Fatalf("PublishDetection() error = %v", err)
	}
	if aws.ToString(api.in.Topic) != "plate_reader/detections" || api.in.Qos != 1 {
		t.Errorf("input = %+v", api.in)
	}
	var got domain.DetectionNotification
	if err := json.Unmarshal(api.in.Payload, &got); err != nil || got.RecordID != "r-9" || got.PlateText != "B1234XYZ" {
		t.Errorf("payload = %s (%v)", api.in.Payload, err)
	}

	api.err = errors.New("forbidden")
	if err := p.PublishDetection(context.Background(), n); !errors.Is(err, api.err) {
		t.Errorf("PublishDetection() error = %v", err)
	}
}
