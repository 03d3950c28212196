package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"coupondrop/internal/config"
	"coupondrop/internal/domain"
	"coupondrop/internal/usecase"
)

// Gateway bridges HTTP requests onto Kafka request/reply: it produces
// a request keyed for partition affinity and blocks until the
// correlated reply arrives on this instance's reply topic.
type Gateway struct {
	client      *kgo.Client
	cfg         *config.Config
	pendingResp sync.Map
}

func NewGateway(cfg *config.Config, client *kgo.Client) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
	}
}

func (g *Gateway) ClaimCoupon(ctx context.Context, identity domain.Identity, code string) (string, error) {
	req := RequestPayload{
		SchemaVersion: 1,
		CorrelationID: uuid.New().String(),
		ReplyTo:       fmt.Sprintf("%s%s", TopicReplyPrefix, g.cfg.KafkaInstanceID),
		CouponCode:    code,
		IP:            identity.IP,
		Cookie:        identity.Cookie,
	}

	// Keyed by coupon code so concurrent claims for one coupon land on
	// one partition and are processed in order.
	resp, err := g.requestReply(ctx, TopicClaimRequest, []byte(code), req)
	if err != nil {
		return "", err
	}
	if resp.Status == StatusError {
		return "", mapError(resp)
	}
	return resp.Code, nil
}

func (g *Gateway) ListCoupons(ctx context.Context, page int, search string) (*domain.CouponPage, error) {
	req := RequestPayload{
		SchemaVersion: 1,
		CorrelationID: uuid.New().String(),
		ReplyTo:       fmt.Sprintf("%s%s", TopicReplyPrefix, g.cfg.KafkaInstanceID),
		Page:          page,
		Search:        search,
	}

	resp, err := g.requestReply(ctx, TopicListRequest, nil, req)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusError {
		return nil, mapError(resp)
	}
	return resp.Coupons, nil
}

func (g *Gateway) requestReply(ctx context.Context, topic string, key []byte, req RequestPayload) (*ResponsePayload, error) {
	respChan := make(chan *ResponsePayload, 1)
	g.pendingResp.Store(req.CorrelationID, respChan)
	defer g.pendingResp.Delete(req.CorrelationID)

	payload, _ := json.Marshal(req)
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: payload,
	}

	if err := g.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(RequestTimeout):
		return nil, errors.New("timeout waiting for response")
	}
}

func (g *Gateway) HandleResponse(payload []byte) {
	var resp ResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("Failed to decode response payload: %v", err)
		return
	}

	if ch, ok := g.pendingResp.Load(resp.CorrelationID); ok {
		ch.(chan *ResponsePayload) <- &resp
		return
	}

	log.Printf("No pending response for correlation ID %s", resp.CorrelationID)
}

func mapError(resp *ResponsePayload) error {
	switch resp.ErrorCode {
	case ErrCodeNotFound:
		return domain.ErrNotFound
	case ErrCodeInvalidRequest:
		return domain.ErrInvalidRequest
	case ErrCodeRateLimited:
		return &domain.RateLimitedError{TimeRemaining: resp.TimeRemaining}
	default:
		return errors.New(resp.ErrorMessage)
	}
}

var _ usecase.CouponGateway = (*Gateway)(nil)
