package redisx

import "time"

const (
	// Session: session:{token} -> principal JSON
	KeySession = "session:%s"

	// Idempotency create order: idem:order:create:{user_id}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"
)

var (
	TTLSession     = 2 * time.Hour
	TTLIdempotency = 24 * time.Hour
	// how long an in-flight create holds its key before a retry may take it
	TTLIdemPending = 30 * time.Second
)
