package kafka

import "coupondrop/internal/domain"

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

type RequestPayload struct {
	SchemaVersion int    `json:"schema_version"`
	CorrelationID string `json:"correlation_id"`
	ReplyTo       string `json:"reply_to"`
	CouponCode    string `json:"coupon_code,omitempty"`
	IP            string `json:"ip,omitempty"`
	Cookie        string `json:"cookie,omitempty"`
	Page          int    `json:"page,omitempty"`
	Search        string `json:"search,omitempty"`
}

type ResponsePayload struct {
	SchemaVersion int                `json:"schema_version"`
	CorrelationID string             `json:"correlation_id"`
	Status        string             `json:"status"`
	ErrorCode     string             `json:"error_code,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	TimeRemaining int64              `json:"time_remaining,omitempty"`
	Code          string             `json:"code,omitempty"`
	Coupons       *domain.CouponPage `json:"coupons,omitempty"`
}
