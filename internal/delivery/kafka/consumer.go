package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"coupondrop/internal/config"
	"coupondrop/internal/domain"
	"coupondrop/internal/usecase"
)

type Consumer struct {
	client  *kgo.Client
	cfg     *config.Config
	service *usecase.CouponService
	ready   chan struct{}
}

func NewConsumer(cfg *config.Config, client *kgo.Client, service *usecase.CouponService) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		service: service,
		ready:   make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			log.Printf("Consumer poll errors: %v", errs)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			c.processRecord(ctx, record)
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Printf("Failed to commit records: %v", err)
		}
	}
}

// StartRetry drains the retry topics back onto the main request
// topics, honouring the x-next-at header before requeueing.
func (c *Consumer) StartRetry(ctx context.Context) {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()

			if nextAt, ok := retryNextAt(record); ok && time.Now().Before(nextAt) {
				time.Sleep(time.Until(nextAt))
			}

			mainTopic := strings.TrimSuffix(record.Topic, TopicRetrySuffix) + TopicRequestSuffix
			newRecord := &kgo.Record{
				Topic:   mainTopic,
				Key:     record.Key,
				Value:   record.Value,
				Headers: record.Headers,
			}
			if err := c.client.ProduceSync(ctx, newRecord).FirstErr(); err != nil {
				log.Printf("Failed to requeue retry record: %v", err)
			}
		}
		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Printf("Failed to commit retry records: %v", err)
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	switch record.Topic {
	case TopicClaimRequest:
		c.handleClaim(ctx, record)
	case TopicListRequest:
		c.handleList(ctx, record)
	}
}

func (c *Consumer) handleClaim(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendToDLQ(ctx, record, "invalid request payload")
		return
	}

	identity := domain.Identity{IP: req.IP, Cookie: req.Cookie}
	code, err := c.service.ClaimCoupon(ctx, identity, req.CouponCode)

	resp := successResponse(req.CorrelationID)
	if err != nil {
		resp = claimErrorResponse(req.CorrelationID, err)
	} else {
		resp.Code = code
	}

	c.sendResponse(ctx, req.ReplyTo, resp)
}

func (c *Consumer) handleList(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendToDLQ(ctx, record, "invalid request payload")
		return
	}

	page, err := c.service.ListCoupons(ctx, req.Page, req.Search)

	resp := successResponse(req.CorrelationID)
	if err != nil {
		resp = errorResponse(req.CorrelationID, ErrCodeInternalError, err.Error())
	} else {
		resp.Coupons = page
	}

	c.sendResponse(ctx, req.ReplyTo, resp)
}

func (c *Consumer) sendResponse(ctx context.Context, topic string, resp *ResponsePayload) {
	payload, _ := json.Marshal(resp)
	record := &kgo.Record{
		Topic: topic,
		Value: payload,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		log.Printf("Failed to send response to %s: %v", topic, err)
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, record *kgo.Record, message string) {
	var req RequestPayload
	_ = json.Unmarshal(record.Value, &req)

	if req.ReplyTo != "" {
		c.sendResponse(ctx, req.ReplyTo, errorResponse(req.CorrelationID, ErrCodeInvalidRequest, message))
	}

	dlqRecord := &kgo.Record{
		Topic: record.Topic + TopicDLQSuffix,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: ErrorHeaderKey, Value: []byte(message)},
		},
	}
	_ = c.client.ProduceSync(ctx, dlqRecord).FirstErr()
}

func retryNextAt(record *kgo.Record) (time.Time, bool) {
	for _, header := range record.Headers {
		if header.Key != RetryHeaderNextAt {
			continue
		}
		nextAt, err := time.Parse(time.RFC3339, string(header.Value))
		if err != nil {
			return time.Time{}, false
		}
		return nextAt, true
	}

	return time.Time{}, false
}

func successResponse(correlationID string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: 1,
		CorrelationID: correlationID,
		Status:        StatusSuccess,
	}
}

func errorResponse(correlationID, code, message string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: 1,
		CorrelationID: correlationID,
		Status:        StatusError,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
}

func claimErrorResponse(correlationID string, err error) *ResponsePayload {
	var rl *domain.RateLimitedError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return errorResponse(correlationID, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errorResponse(correlationID, ErrCodeNotFound, err.Error())
	case errors.As(err, &rl):
		resp := errorResponse(correlationID, ErrCodeRateLimited, err.Error())
		resp.TimeRemaining = rl.TimeRemaining
		return resp
	default:
		return errorResponse(correlationID, ErrCodeInternalError, err.Error())
	}
}
