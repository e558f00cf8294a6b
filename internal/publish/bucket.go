package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/itaame/MCC-COMMS/types"
)

// ensureBucket creates or opens the view bucket.
//
// Another console may create the same bucket concurrently, so creation is
// retried with exponential backoff and ErrBucketExists falls back to
// opening the existing bucket.
func ensureBucket(ctx context.Context, js jetstream.JetStream, bucket string, maxRetries int) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	cfg := jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "mcc-comms channel view",
		History:     1, // Keep only latest value
	}

	var lastErr error
	for attempt := range maxRetries {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err := js.KeyValue(ctx, bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}

		// 10ms, 20ms, 40ms...
		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w", bucket, maxRetries, lastErr)
}

// isConnectivityError reports whether err comes from the broker being
// unreachable rather than from a rejected write.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrConnectivity) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// Key returns the KV key for a channel under prefix.
func Key(prefix, channel string) string {
	return sanitize(prefix) + "." + sanitize(channel)
}

// sanitize maps a name onto the NATS key alphabet [-/_=.a-zA-Z0-9].
// Dots are replaced too so a channel name never adds key segments.
func sanitize(s string) string {
	if s == "" {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '=':
			return r
		default:
			return '_'
		}
	}, s)
}
