package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type presenceRecord struct {
	Instance    string    `json:"service_instance"`
	ConnectedAt time.Time `json:"connected_at"`
}

// SetPresence registers that userID currently has a live connection on instance.
func SetPresence(ctx context.Context, store Store, userID, instance string) error {
	rec := presenceRecord{Instance: instance, ConnectedAt: time.Now().UTC()}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return store.Set(ctx, presenceKey(userID), string(body), 0)
}

// ClearPresence removes the presence record. A missing key is not an error.
func ClearPresence(ctx context.Context, store Store, userID string) error {
	return store.Delete(ctx, presenceKey(userID))
}

// IsPresent reports whether userID has a registered live connection.
func IsPresent(ctx context.Context, store Store, userID string) bool {
	_, found, err := store.Get(ctx, presenceKey(userID))
	return err == nil && found
}

func presenceKey(userID string) string {
	return fmt.Sprintf("ws-connections:%s", userID)
}
