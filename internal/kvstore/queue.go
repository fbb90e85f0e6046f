package kvstore

import (
	"context"
	"fmt"
)

// QueueReminder appends a JSON-encoded reminder frame to the offline queue
// for userID. Called by the WebSocket Gateway when a reminder.triggered
// event arrives for a user with no live connection.
func QueueReminder(ctx context.Context, store Store, userID, frameJSON string) error {
	return store.ListAppend(ctx, reminderQueueKey(userID), frameJSON)
}

// DrainReminderQueue returns every queued frame for userID, in enqueue
// order, and empties the queue. Called on WebSocket reconnect.
func DrainReminderQueue(ctx context.Context, store Store, userID string) ([]string, error) {
	return store.ListDrain(ctx, reminderQueueKey(userID))
}

func reminderQueueKey(userID string) string {
	return fmt.Sprintf("reminder-queue:%s", userID)
}
