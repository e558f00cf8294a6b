package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/itaame/MCC-COMMS/types"
)

// StartEmbeddedNATS starts an in-process NATS server with JetStream enabled
// for view mirror tests.
//
// The server listens on a random port and stores data under t.TempDir().
// Server and client connection are shut down by t.Cleanup.
//
// Parameters:
//   - t: Testing context for logging and cleanup
//
// Returns:
//   - *server.Server: The embedded NATS server instance
//   - *nats.Conn: Connected NATS client (closed automatically on test completion)
//
// Example:
//
//	func TestViewMirror(t *testing.T) {
//	    _, nc := commstest.StartEmbeddedNATS(t)
//	    coord, err := comms.New(&cfg, src, comms.WithNATS(nc))
//	    // ...
//	}
func StartEmbeddedNATS(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		ServerName: "mcc-comms-test",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   t.TempDir(),
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		t.Fatalf("create embedded NATS server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready within 5s")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name("mcc-comms-test"), nats.Timeout(2*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("connect to embedded NATS server: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

// CreateViewBucket creates an in-memory KV bucket shaped like the one the
// view mirror opens (single revision history).
func CreateViewBucket(t *testing.T, nc *nats.Conn, bucket string) jetstream.KeyValue {
	t.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("mcc-comms test view %s", bucket),
		History:     1,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		t.Fatalf("create view bucket %s: %v", bucket, err)
	}

	return kv
}

// MirrorRecord is one channel entry as written by the view mirror.
type MirrorRecord struct {
	State  types.State `json:"state"`
	Worker string      `json:"worker,omitempty"`
	Count  int         `json:"count"`
}

// MirroredChannel reads and decodes the mirror record stored under key.
//
// Returns:
//   - MirrorRecord: Decoded record
//   - error: Key missing, broker unreachable, or value not a channel record
func MirroredChannel(ctx context.Context, kv jetstream.KeyValue, key string) (MirrorRecord, error) {
	entry, err := kv.Get(ctx, key)
	if err != nil {
		return MirrorRecord{}, err
	}

	var rec MirrorRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return MirrorRecord{}, fmt.Errorf("decode %s: %w", key, err)
	}

	return rec, nil
}
