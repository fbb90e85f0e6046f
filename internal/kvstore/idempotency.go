package kvstore

import (
	"context"
	"fmt"
	"time"
)

const idempotencyTTL = 24 * time.Hour

// IsDuplicate checks the idempotency key for (service, eventID). A read
// failure is treated as "not a duplicate" (fail-open): refusing to process
// an event because the store is briefly unavailable is worse than the rare
// double-process that idempotent handlers tolerate anyway.
func IsDuplicate(ctx context.Context, store Store, service, eventID string) bool {
	_, found, err := store.Get(ctx, idempotencyKey(service, eventID))
	if err != nil {
		return false
	}
	return found
}

// MarkProcessed records that (service, eventID) has been handled.
func MarkProcessed(ctx context.Context, store Store, service, eventID string) error {
	return store.Set(ctx, idempotencyKey(service, eventID), time.Now().UTC().Format(time.RFC3339), idempotencyTTL)
}

func idempotencyKey(service, eventID string) string {
	return fmt.Sprintf("idempotency:%s:%s", service, eventID)
}
