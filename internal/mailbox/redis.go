package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/holla2040/steamboiler/internal/classify"
	"github.com/holla2040/steamboiler/internal/protocol"
)

// Redis backs one boiler's mailbox with a pair of Redis Streams: the
// simulation harness XADDs one entry per cycle to the inbound stream
// (field "batch", a JSON array of envelopes), and Send XADDs each
// outbound command individually to the outbound stream, one entry per
// message.
type Redis struct {
	rdb       *redis.Client
	ctx       context.Context
	source    protocol.Source
	inStream  string
	outStream string

	inbound []classify.Message
	sent    []classify.Message
}

// NewRedis creates a Redis mailbox addressing the given stream keys
// (conventionally "cycle:<boiler-id>:in" / "cycle:<boiler-id>:out").
func NewRedis(ctx context.Context, rdb *redis.Client, source protocol.Source, inStream, outStream string) *Redis {
	return &Redis{ctx: ctx, rdb: rdb, source: source, inStream: inStream, outStream: outStream}
}

// Fetch blocks until the next inbound stream entry after lastID arrives,
// decodes its envelope batch, and primes Size/Read for one
// Controller.Clock call. Pass "0" as lastID for the first cycle; the
// returned ID becomes the next call's lastID.
func (r *Redis) Fetch(lastID string) (string, error) {
	streams, err := r.rdb.XRead(r.ctx, &redis.XReadArgs{
		Streams: []string{r.inStream, lastID},
		Count:   1,
		Block:   0,
	}).Result()
	if err != nil {
		return lastID, fmt.Errorf("mailbox: XREAD %s: %w", r.inStream, err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return lastID, fmt.Errorf("mailbox: XREAD %s: no entries", r.inStream)
	}

	entry := streams[0].Messages[0]
	raw, ok := entry.Values["batch"].(string)
	if !ok {
		return entry.ID, fmt.Errorf("mailbox: entry %s: missing batch field", entry.ID)
	}

	var envelopes []protocol.Message
	if err := json.Unmarshal([]byte(raw), &envelopes); err != nil {
		return entry.ID, fmt.Errorf("mailbox: decode batch: %w", err)
	}

	batch := make([]classify.Message, len(envelopes))
	for i, e := range envelopes {
		batch[i] = e.Payload
	}
	r.inbound = batch
	r.sent = nil
	return entry.ID, nil
}

// Size implements controller.Inbound.
func (r *Redis) Size() int { return len(r.inbound) }

// Read implements controller.Inbound.
func (r *Redis) Read(i int) classify.Message { return r.inbound[i] }

// InboundBatch returns a copy of the batch primed by the last Fetch, for
// composition-root observers (registry, audit log) that need to inspect
// what the controller consumed this cycle.
func (r *Redis) InboundBatch() []classify.Message {
	return append([]classify.Message(nil), r.inbound...)
}

// SentBatch returns a copy of the commands sent since the last Fetch.
func (r *Redis) SentBatch() []classify.Message {
	return append([]classify.Message(nil), r.sent...)
}

// Send implements controller.Outbound. A failed XADD is logged and
// dropped: the controller's per-cycle contract has no error return, and
// the next cycle's MODE message will still reflect current state.
func (r *Redis) Send(m classify.Message) {
	msg := protocol.NewMessage(r.source, m)
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Printf("mailbox: encode %s: %v", m.Kind, err)
		return
	}
	if err := r.rdb.XAdd(r.ctx, &redis.XAddArgs{
		Stream: r.outStream,
		Values: map[string]interface{}{"message": string(data)},
	}).Err(); err != nil {
		log.Printf("mailbox: XADD %s: %v", r.outStream, err)
		return
	}
	r.sent = append(r.sent, m)
}
