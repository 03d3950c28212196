package kafka

import "time"

const (
	TopicClaimRequest  = "coupon.claim.req"
	TopicListRequest   = "coupon.list.req"
	TopicClaimRetry    = "coupon.claim.retry"
	TopicListRetry     = "coupon.list.retry"
	TopicReplyPrefix   = "coupon.reply."
	TopicRequestSuffix = ".req"
	TopicRetrySuffix   = ".retry"
	TopicDLQSuffix     = ".dlq"

	RequestTimeout = 3 * time.Second

	RetryHeaderNextAt = "x-next-at"
	ErrorHeaderKey    = "x-error"
)
