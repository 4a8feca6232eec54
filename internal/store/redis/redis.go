package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"restodesk/backend/internal/store"
)

var _ store.KV = (*Store)(nil)

// putScript appends the id to the collection index only the first time it
// is written, so updates keep their list position.
var putScript = goredis.NewScript(`
if not redis.call('ZSCORE', KEYS[2], ARGV[1]) then
	local pos = redis.call('INCR', KEYS[3])
	redis.call('ZADD', KEYS[2], pos, ARGV[1])
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

var reserveScript = goredis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

type Store struct {
	client *goredis.Client
	prefix string
}

func New(addr string, password string, db int, prefix string) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, prefix)
}

func NewFromClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "restodesk"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Client() *goredis.Client {
	return s.client
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) valueKey(collection string, id string) string {
	return s.prefix + ":kv:" + collection + ":" + id
}

func (s *Store) indexKey(collection string) string {
	return s.prefix + ":idx:" + collection
}

func (s *Store) positionKey() string {
	return s.prefix + ":pos"
}

func (s *Store) sequenceKey(name string) string {
	return s.prefix + ":seq:" + name
}

func (s *Store) Get(ctx context.Context, collection string, id string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.valueKey(collection, id)).Bytes()
	if err == goredis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, collection string, id string, value []byte) error {
	keys := []string{s.valueKey(collection, id), s.indexKey(collection), s.positionKey()}
	if err := putScript.Run(ctx, s.client, keys, id, value).Err(); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	var deleted *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.valueKey(collection, id))
		pipe.ZRem(ctx, s.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return classify(err)
	}
	if deleted.Val() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, collection string) ([]store.Record, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, classify(err)
	}
	if len(ids) == 0 {
		return []store.Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.valueKey(collection, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify(err)
	}

	records := make([]store.Record, 0, len(ids))
	for i, raw := range values {
		str, ok := raw.(string)
		if !ok {
			// Index entry without a value: a delete raced this read.
			continue
		}
		records = append(records, store.Record{ID: ids[i], Value: []byte(str)})
	}
	return records, nil
}

func (s *Store) Next(ctx context.Context, sequence string) (int64, error) {
	n, err := s.client.Incr(ctx, s.sequenceKey(sequence)).Result()
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (s *Store) Reserve(ctx context.Context, sequence string, atLeast int64) error {
	if err := reserveScript.Run(ctx, s.client, []string{s.sequenceKey(sequence)}, atLeast).Err(); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if strings.HasPrefix(err.Error(), "OOM") {
		return fmt.Errorf("%w: %v", store.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
