package messaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/farmabot/ocr-service/internal/pipeline"
	"github.com/farmabot/ocr-service/pkg/logging"
)

// Wiring for the OCR request/response topology
const (
	RequestExchange  = "ocr.exchange"
	RequestQueue     = "ocr.queue"
	ResponseExchange = "ocr.response"

	RoutingKeyExtract       = "extract_text"
	RoutingKeyExtractBase64 = "extract_text_base64"

	DeadLetterExchange = RequestExchange + ".dlq"
	DeadLetterQueue    = RequestQueue + ".dlq"
)

// ExtractRequest is the consumed request payload. Number is the correlation
// id; the image arrives either as a base64 string or as raw bytes.
type ExtractRequest struct {
	Base64String string `json:"base64_string,omitempty"`
	ImageBytes   []byte `json:"imageBytes,omitempty"`
	Number       string `json:"number"`
}

// ExtractResponse is the published response payload, routed by correlation id
type ExtractResponse struct {
	Number            string   `json:"number"`
	TextoExtraido     string   `json:"texto_extraido"`
	TextoNormalizado  string   `json:"texto_normalizado"`
	MatchMedicamentos []string `json:"match_medicamentos"`
}

// publisher is the slice of Client the consumer needs for responses
type publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message any, headers amqp.Table) error
}

// Consumer wires the extraction pipeline to the broker: it decodes request
// payloads at the boundary, runs the pipeline, and publishes the correlated
// response event.
type Consumer struct {
	client    *Client
	pub       publisher
	processor *pipeline.Processor
	log       zerolog.Logger
}

// NewConsumer creates the OCR request consumer over an adapter client
func NewConsumer(client *Client, processor *pipeline.Processor) *Consumer {
	return &Consumer{
		client:    client,
		pub:       client,
		processor: processor,
		log:       logging.GetLogger("ocr-consumer"),
	}
}

// Start subscribes the consumer to both extraction routing keys on the
// durable request queue
func (c *Consumer) Start() error {
	if err := c.client.SubscribeTopic(RequestExchange, RequestQueue, RoutingKeyExtract, c.Handle); err != nil {
		return err
	}
	return c.client.SubscribeTopic(RequestExchange, RequestQueue, RoutingKeyExtractBase64, c.Handle)
}

// Handle is the boundary shell around the pipeline. Schema and base64 decode
// failures return an error and dead-letter the message; once the pipeline
// runs, its result is terminal: a business failure is logged and acknowledged
// (no response event), a success publishes the correlated response.
func (c *Consumer) Handle(ctx context.Context, payload json.RawMessage) error {
	req, imageBytes, err := decodeRequest(payload)
	if err != nil {
		return err
	}

	result := c.processor.Process(ctx, pipeline.Request{
		SourceID:   req.Number,
		ImageBytes: imageBytes,
	})

	if !result.Success {
		// Acknowledged but silent: the correlation owner sees no event
		c.log.Warn().
			Str("number", req.Number).
			Str("error", result.ErrorMessage).
			Msg("Extraction failed, no response published")
		return nil
	}

	return c.pub.Publish(ctx, ResponseExchange, req.Number, ExtractResponse{
		Number:            result.SourceID,
		TextoExtraido:     result.RawText,
		TextoNormalizado:  result.NormalizedText,
		MatchMedicamentos: result.MatchedDrugs,
	}, nil)
}

// decodeRequest validates the payload schema and decodes the image, failing
// fast with a decode classification that routes the message to the DLQ
func decodeRequest(payload json.RawMessage) (*ExtractRequest, []byte, error) {
	var req ExtractRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, nil, fmt.Errorf("decode request payload: %w", err)
	}
	if req.Number == "" {
		return nil, nil, fmt.Errorf("decode request payload: missing correlation number")
	}

	if len(req.ImageBytes) > 0 {
		return &req, req.ImageBytes, nil
	}
	if req.Base64String == "" {
		return nil, nil, fmt.Errorf("decode request payload: missing image data")
	}
	imageBytes, err := base64.StdEncoding.DecodeString(req.Base64String)
	if err != nil {
		return nil, nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return &req, imageBytes, nil
}
