package messaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmabot/ocr-service/internal/catalog"
	"github.com/farmabot/ocr-service/internal/matching"
	"github.com/farmabot/ocr-service/internal/pipeline"
	"github.com/farmabot/ocr-service/pkg/logging"
)

// fakePublisher captures the response event the consumer publishes
type fakePublisher struct {
	exchange   string
	routingKey string
	message    any
	err        error
	calls      int
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, message any, headers amqp.Table) error {
	f.calls++
	f.exchange = exchange
	f.routingKey = routingKey
	f.message = message
	return f.err
}

// fakeExtractor feeds canned fragments into the pipeline
type fakeExtractor struct {
	fragments []string
	err       error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	return f.fragments, f.err
}

func testConsumer(t *testing.T, extractor *fakeExtractor) (*Consumer, *fakePublisher) {
	t.Helper()
	matcher := matching.NewEngine(catalog.NewIndex([]string{"Dipirona", "Paracetamol"}))
	processor := pipeline.NewProcessor(extractor, matcher, nil, t.TempDir())
	pub := &fakePublisher{}
	return &Consumer{
		pub:       pub,
		processor: processor,
		log:       logging.GetLogger("ocr-consumer-test"),
	}, pub
}

func requestPayload(t *testing.T, req ExtractRequest) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func TestHandlePublishesCorrelatedResponse(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{fragments: []string{"Paracetamol"}})

	payload := requestPayload(t, ExtractRequest{
		Base64String: base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes")),
		Number:       "5521999999999",
	})

	require.NoError(t, consumer.Handle(context.Background(), payload))

	require.Equal(t, 1, pub.calls)
	assert.Equal(t, ResponseExchange, pub.exchange)
	assert.Equal(t, "5521999999999", pub.routingKey)

	resp, ok := pub.message.(ExtractResponse)
	require.True(t, ok)
	assert.Equal(t, "5521999999999", resp.Number)
	assert.Equal(t, "Paracetamol", resp.TextoExtraido)
	assert.Equal(t, "paracetamol", resp.TextoNormalizado)
	assert.Contains(t, resp.MatchMedicamentos, "paracetamol")
}

func TestHandleAcceptsRawImageBytes(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{fragments: []string{"Dipirona"}})

	payload := requestPayload(t, ExtractRequest{
		ImageBytes: []byte("fake-jpeg-bytes"),
		Number:     "42",
	})

	require.NoError(t, consumer.Handle(context.Background(), payload))
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "42", pub.routingKey)
}

func TestHandleMalformedJSONIsBoundaryError(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{})

	err := consumer.Handle(context.Background(), json.RawMessage(`"not an object"`))

	assert.Error(t, err)
	assert.Zero(t, pub.calls)
}

func TestHandleMissingNumberIsBoundaryError(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{})

	payload := requestPayload(t, ExtractRequest{Base64String: "aGVsbG8="})

	err := consumer.Handle(context.Background(), payload)
	assert.ErrorContains(t, err, "missing correlation number")
	assert.Zero(t, pub.calls)
}

func TestHandleMissingImageIsBoundaryError(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{})

	payload := requestPayload(t, ExtractRequest{Number: "1"})

	err := consumer.Handle(context.Background(), payload)
	assert.ErrorContains(t, err, "missing image data")
	assert.Zero(t, pub.calls)
}

func TestHandleInvalidBase64IsBoundaryError(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{})

	payload := json.RawMessage(`{"base64_string":"!!!not-base64!!!","number":"1"}`)

	err := consumer.Handle(context.Background(), payload)
	assert.ErrorContains(t, err, "decode base64 image")
	assert.Zero(t, pub.calls)
}

func TestHandleBusinessFailureIsAcked(t *testing.T) {
	// An extraction failure is a business failure: no error to the
	// adapter (ack), and no response event for the correlation owner
	consumer, pub := testConsumer(t, &fakeExtractor{err: errors.New("ocr timeout")})

	payload := requestPayload(t, ExtractRequest{
		Base64String: base64.StdEncoding.EncodeToString([]byte("bytes")),
		Number:       "7",
	})

	require.NoError(t, consumer.Handle(context.Background(), payload))
	assert.Zero(t, pub.calls)
}

func TestHandlePublishFailurePropagates(t *testing.T) {
	consumer, pub := testConsumer(t, &fakeExtractor{fragments: []string{"Dipirona"}})
	pub.err = errors.New("channel closed")

	payload := requestPayload(t, ExtractRequest{
		Base64String: base64.StdEncoding.EncodeToString([]byte("bytes")),
		Number:       "7",
	})

	assert.Error(t, consumer.Handle(context.Background(), payload))
}
