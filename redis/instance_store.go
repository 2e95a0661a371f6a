package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/store"
)

// Hash fields of an instance key.
const (
	fieldInput    = "input"
	fieldSnapshot = "snapshot"
	fieldSequence = "seq"
	fieldCreated  = "created"
	fieldUpdated  = "updated"
)

// KEYS[1] instance hash, KEYS[2] active set.
// ARGV: id, input, snapshot, seq, created.
var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'input', ARGV[2], 'snapshot', ARGV[3], 'seq', ARGV[4], 'created', ARGV[5], 'updated', ARGV[5])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// KEYS[1] instance hash, KEYS[2] active set.
// ARGV: id, snapshot, seq, updated, done ("1" or "0"), ttl in ms (0 keeps).
// Returns -1 for a missing instance, 0 for a stale sequence, 1 when written.
var saveScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local stored = tonumber(redis.call('HGET', KEYS[1], 'seq') or '-1')
if tonumber(ARGV[3]) <= stored then
  return 0
end
redis.call('HSET', KEYS[1], 'snapshot', ARGV[2], 'seq', ARGV[3], 'updated', ARGV[4])
if ARGV[5] == '1' then
  redis.call('SREM', KEYS[2], ARGV[1])
  if tonumber(ARGV[6]) > 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[6])
  end
end
return 1
`)

// InstanceStore implements store.Store on Redis hashes.
type InstanceStore struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ store.Store = (*InstanceStore)(nil)

func NewInstanceStore(c *Client) *InstanceStore {
	return &InstanceStore{
		rdb:    c.rdb,
		prefix: c.cfg.KeyPrefix,
		ttl:    c.cfg.completedTTL(),
		now:    time.Now,
	}
}

func (s *InstanceStore) instanceKey(id string) string { return s.prefix + ":instance:" + id }
func (s *InstanceStore) activeKey() string           { return s.prefix + ":active" }

func (s *InstanceStore) Create(ctx context.Context, rec *store.Record) error {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return fmt.Errorf("redis: encoding input %s: %w", rec.InstanceID, err)
	}
	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("redis: encoding snapshot %s: %w", rec.InstanceID, err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	var seq int64
	if rec.Snapshot != nil {
		seq = rec.Snapshot.Sequence
	}

	n, err := createScript.Run(ctx, s.rdb,
		[]string{s.instanceKey(rec.InstanceID), s.activeKey()},
		rec.InstanceID, input, snap, seq, created.UnixNano(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis: create %s: %w", rec.InstanceID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrExists, rec.InstanceID)
	}
	return nil
}

func (s *InstanceStore) Get(ctx context.Context, instanceID string) (*store.Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.instanceKey(instanceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", instanceID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, instanceID)
	}
	return decodeRecord(instanceID, fields)
}

func (s *InstanceStore) SaveSnapshot(ctx context.Context, snap *dag.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encoding snapshot %s: %w", snap.InstanceID, err)
	}
	done := "0"
	if snap.Done() {
		done = "1"
	}

	n, err := saveScript.Run(ctx, s.rdb,
		[]string{s.instanceKey(snap.InstanceID), s.activeKey()},
		snap.InstanceID, data, snap.Sequence, s.now().UnixNano(), done, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis: save snapshot %s: %w", snap.InstanceID, err)
	}
	if n < 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, snap.InstanceID)
	}
	return nil
}

func (s *InstanceStore) ListActive(ctx context.Context) ([]*store.Record, error) {
	ids, err := s.rdb.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list active: %w", err)
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.instanceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis: list active: %w", err)
	}

	out := make([]*store.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decodeRecord(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InstanceStore) Delete(ctx context.Context, instanceID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.instanceKey(instanceID))
	pipe.SRem(ctx, s.activeKey(), instanceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete %s: %w", instanceID, err)
	}
	return nil
}

func decodeRecord(id string, fields map[string]string) (*store.Record, error) {
	rec := &store.Record{InstanceID: id}
	if err := json.Unmarshal([]byte(fields[fieldInput]), &rec.Input); err != nil {
		return nil, fmt.Errorf("redis: decoding input %s: %w", id, err)
	}
	if raw := fields[fieldSnapshot]; raw != "" && raw != "null" {
		rec.Snapshot = &dag.StatusSnapshot{}
		if err := json.Unmarshal([]byte(raw), rec.Snapshot); err != nil {
			return nil, fmt.Errorf("redis: decoding snapshot %s: %w", id, err)
		}
	}
	rec.CreatedAt = unixNano(fields[fieldCreated])
	rec.UpdatedAt = unixNano(fields[fieldUpdated])
	return rec, nil
}

func unixNano(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
