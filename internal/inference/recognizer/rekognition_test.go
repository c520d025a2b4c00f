package recognizer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type fakeTextAPI struct {
	out    *rekognition.DetectTextOutput
	err    error
	gotLen int
}

func (f *fakeTextAPI) DetectText(_ context.Context, in *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	f.gotLen = len(in.Image.Bytes)
	return f.out, f.err
}

func line(text string, conf float32) types.TextDetection {
	return types.TextDetection{Type: types.TextTypesLine, DetectedText: aws.String(text), Confidence: aws.Float32(conf)}
}

func word(text string, conf float32) types.TextDetection {
	return types.TextDetection{Type: types.TextTypesWord, DetectedText: aws.String(text), Confidence: aws.Float32(conf)}
}

func TestRekognition_LinesInOrder(t *testing.T) {
	api := &fakeTextAPI{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{
		line("B 1234 XYZ", 88),
		word("B", 99),
		line("  ", 99),
		line("03.27", 97),
	}}}

	hyps, err := NewRekognition(api, nil).Recognize(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if api.gotLen != 3 {
		t.Errorf("sent %d bytes, want 3", api.gotLen)
	}
	if len(hyps) != 2 || hyps[0].Text != "B 1234 XYZ" || hyps[1].Text != "03.27" {
		t.Fatalf("hyps = %+v", hyps)
	}
	if hyps[0].Confidence < 0.879 || hyps[0].Confidence > 0.881 {
		t.Errorf("confidence = %v, want 0.88", hyps[0].Confidence)
	}
}

func TestRekognition_FallsBackToWords(t *testing.T) {
	api := &fakeTextAPI{out: &rekognition.DetectTextOutput{TextDetections: []types.TextDetection{word("L55", 70)}}}
	hyps, err := NewRekognition(api, nil).Recognize(context.Background(), nil)
	if err != nil || len(hyps) != 1 || hyps[0].Text != "L55" {
		t.Fatalf("Recognize() = %+v, %v", hyps, err)
	}
}

func TestRekognition_NothingFound(t *testing.T) {
	api := &fakeTextAPI{out: &rekognition.DetectTextOutput{}}
	hyps, err := NewRekognition(api, nil).Recognize(context.Background(), nil)
	if err != nil || len(hyps) != 0 {
		t.Fatalf("Recognize() = %+v, %v", hyps, err)
	}
}

func TestRekognition_Error(t *testing.T) {
	boom := errors.New("throttled")
	_, err := NewRekognition(&fakeTextAPI{err: boom}, nil).Recognize(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, err := NewRekognition(nil, nil).Recognize(context.Background(), nil); err == nil {
		t.Error("nil client should fail")
	}
}
