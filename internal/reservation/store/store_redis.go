package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"marketparticipant/internal/marketrole"
	"marketparticipant/internal/reservation"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/tx"
)

const (
	claimKeyPrefix = "reservation:claim:"
	actorKeyPrefix = "reservation:actor:"
)

// reserveScript claims KEYS[1] for ARGV[1] and indexes the claim under the
// actor's set KEYS[2]. Returns 1 when claimed, 0 when already held.
var reserveScript = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 1 then
	redis.call("SADD", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// releaseScript deletes every claim indexed under the actor set KEYS[1] that
// is still held by ARGV[1], then the set itself. Returns the released members.
var releaseScript = redis.NewScript(`
local members = redis.call("SMEMBERS", KEYS[1])
local released = {}
for _, m in ipairs(members) do
	local key = ARGV[2] .. m
	if redis.call("GET", key) == ARGV[1] then
		redis.call("DEL", key)
		table.insert(released, m)
	end
end
redis.call("DEL", KEYS[1])
return released
`)

// unclaimScript drops a single claim when still held by ARGV[1].
var unclaimScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
	redis.call("SREM", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// RedisStore keeps the reservation table in Redis for deployments that share
// it across services. Redis is outside the SQL transaction, so every change
// registers a compensation that the unit of work replays on rollback.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func member(function marketrole.EicFunction, gridAreaID id.GridAreaID) string {
	return string(function) + "|" + gridAreaID.String()
}

func claimKey(m string) string           { return claimKeyPrefix + m }
func actorKey(actorID id.ActorID) string { return actorKeyPrefix + actorID.String() }

func (s *RedisStore) TryReserve(ctx context.Context, actorID id.ActorID, function marketrole.EicFunction, gridAreaID id.GridAreaID) (bool, error) {
	m := member(function, gridAreaID)
	claimed, err := reserveScript.Run(ctx, s.client,
		[]string{claimKey(m), actorKey(actorID)},
		actorID.String(), m,
	).Int()
	if err != nil {
		return false, fmt.Errorf("reserve grid area: %w", err)
	}
	if claimed == 0 {
		return false, nil
	}
	undoCtx := context.WithoutCancel(ctx)
	tx.OnRollback(ctx, func() {
		_ = unclaimScript.Run(undoCtx, s.client,
			[]string{claimKey(m), actorKey(actorID)},
			actorID.String(), m,
		).Err()
	})
	return true, nil
}

func (s *RedisStore) ReleaseAll(ctx context.Context, actorID id.ActorID) error {
	released, err := releaseScript.Run(ctx, s.client,
		[]string{actorKey(actorID)},
		actorID.String(), claimKeyPrefix,
	).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release reservations: %w", err)
	}
	if len(released) == 0 {
		return nil
	}
	undoCtx := context.WithoutCancel(ctx)
	tx.OnRollback(ctx, func() {
		for _, m := range released {
			_ = reserveScript.Run(undoCtx, s.client,
				[]string{claimKey(m), actorKey(actorID)},
				actorID.String(), m,
			).Err()
		}
	})
	return nil
}

func (s *RedisStore) ListByActor(ctx context.Context, actorID id.ActorID) ([]reservation.Reservation, error) {
	members, err := s.client.SMembers(ctx, actorKey(actorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	out := make([]reservation.Reservation, 0, len(members))
	for _, m := range members {
		function, grid, ok := strings.Cut(m, "|")
		if !ok {
			continue
		}
		gridID, err := uuid.Parse(grid)
		if err != nil {
			continue
		}
		out = append(out, reservation.Reservation{
			ActorID:    actorID,
			Function:   marketrole.EicFunction(function),
			GridAreaID: id.GridAreaID(gridID),
		})
	}
	return out, nil
}

var (
	_ reservation.Store = (*InMemory)(nil)
	_ reservation.Store = (*PostgresStore)(nil)
	_ reservation.Store = (*RedisStore)(nil)
)
