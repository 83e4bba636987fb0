package redis

import (
	"context"
	"hash/crc32"
	"hash/fnv"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/artfeed/domain"
)

const (
	KeyPostBloom = "bloom:post:ids"

	bloomHashes = 3
)

// redisBloomRepo is a bloom filter over post ids kept in one redis bitmap
type redisBloomRepo struct {
	client  *redis.Client
	bitSize uint64
}

var _ domain.BloomRepository = (*redisBloomRepo)(nil)

func NewRedisBloomRepo(client *redis.Client, bitSize uint64) *redisBloomRepo {
	if bitSize == 0 {
		bitSize = 1 << 24
	}
	return &redisBloomRepo{
		client:  client,
		bitSize: bitSize,
	}
}

func (r *redisBloomRepo) Add(ctx context.Context, id int64) error {
	offsets := r.offsets(id)
	pipe := r.client.Pipeline()
	for _, offset := range offsets {
		pipe.SetBit(ctx, KeyPostBloom, int64(offset), 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisBloomRepo) Exists(ctx context.Context, id int64) (bool, error) {
	offsets := r.offsets(id)
	pipe := r.client.Pipeline()
	for _, offset := range offsets {
		pipe.GetBit(ctx, KeyPostBloom, int64(offset))
	}
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		val, err := cmd.(*redis.IntCmd).Result()
		if err != nil {
			return false, err
		}
		if val == 0 {
			return false, nil
		}
	}

	return true, nil
}

func (r *redisBloomRepo) offsets(id int64) []uint64 {
	data := strconv.AppendInt(nil, id, 10)

	h := fnv.New64a()
	h.Write(data)
	h1 := uint64(crc32.ChecksumIEEE(data))
	h2 := h.Sum64()

	// double hashing: g_i = h1 + i*h2
	offsets := make([]uint64, bloomHashes)
	for i := range offsets {
		offsets[i] = (h1 + uint64(i)*h2) % r.bitSize
	}
	return offsets
}

func (r *redisBloomRepo) BulkAdd(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, id := range ids {
		offsets := r.offsets(id)
		for _, offset := range offsets {
			pipe.SetBit(ctx, KeyPostBloom, int64(offset), 1)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
