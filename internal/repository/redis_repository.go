package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"todolist/internal/model"
)

const defaultRedisPrefix = "todo:"

// markPastDueScript promotes overdue not-done items atomically.
// KEYS: not-done set, past-due set, due zset. ARGV: now (unix micro), item key prefix.
var markPastDueScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local ids = redis.call('SMEMBERS', KEYS[1])
local updated = 0
for _, id in ipairs(ids) do
	local due = tonumber(redis.call('ZSCORE', KEYS[3], id))
	if due and due < now then
		local key = ARGV[2] .. id
		local raw = redis.call('GET', key)
		if raw then
			local item = cjson.decode(raw)
			item.status = 'PAST_DUE'
			redis.call('SET', key, cjson.encode(item))
		end
		redis.call('SMOVE', KEYS[1], KEYS[2], id)
		updated = updated + 1
	end
end
return updated
`)

var allStatuses = []model.Status{model.StatusNotDone, model.StatusDone, model.StatusPastDue}

// RedisTodoRepository persists todo items in Redis.
type RedisTodoRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisTodoRepository(client *redis.Client) *RedisTodoRepository {
	return &RedisTodoRepository{client: client, prefix: defaultRedisPrefix}
}

// WithPrefix returns a copy of the repository storing keys under prefix.
func (r *RedisTodoRepository) WithPrefix(prefix string) *RedisTodoRepository {
	return &RedisTodoRepository{client: r.client, prefix: prefix}
}

func (r *RedisTodoRepository) seqKey() string     { return r.prefix + "seq" }
func (r *RedisTodoRepository) itemPrefix() string { return r.prefix + "item:" }
func (r *RedisTodoRepository) createdKey() string { return r.prefix + "created" }
func (r *RedisTodoRepository) dueKey() string     { return r.prefix + "due" }

func (r *RedisTodoRepository) itemKey(id string) string {
	return r.itemPrefix() + id
}

func (r *RedisTodoRepository) statusKey(status model.Status) string {
	return r.prefix + "status:" + string(status)
}

func (r *RedisTodoRepository) Create(ctx context.Context, item *model.TodoItem) error {
	id, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("create todo item: %w", err)
	}
	item.ID = uint(id)
	if err := r.write(ctx, item); err != nil {
		return fmt.Errorf("create todo item: %w", err)
	}
	return nil
}

func (r *RedisTodoRepository) FindByID(ctx context.Context, id uint) (*model.TodoItem, error) {
	data, err := r.client.Get(ctx, r.itemKey(formatID(id))).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find todo item %d: %w", id, err)
	}
	var item model.TodoItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("decode todo item %d: %w", id, err)
	}
	return &item, nil
}

func (r *RedisTodoRepository) Save(ctx context.Context, item *model.TodoItem) error {
	if err := r.write(ctx, item); err != nil {
		return fmt.Errorf("save todo item %d: %w", item.ID, err)
	}
	return nil
}

func (r *RedisTodoRepository) ListAll(ctx context.Context) ([]model.TodoItem, error) {
	ids, err := r.client.ZRange(ctx, r.createdKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list todo items: %w", err)
	}
	items, err := r.load(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list todo items: %w", err)
	}
	return items, nil
}

func (r *RedisTodoRepository) ListByStatus(ctx context.Context, status model.Status) ([]model.TodoItem, error) {
	ids, err := r.client.SMembers(ctx, r.statusKey(status)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s todo items: %w", status, err)
	}
	items, err := r.load(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list %s todo items: %w", status, err)
	}
	return items, nil
}

// MarkPastDue runs the promotion as a single Lua script so it is atomic on the server.
func (r *RedisTodoRepository) MarkPastDue(ctx context.Context, now time.Time) (int64, error) {
	keys := []string{r.statusKey(model.StatusNotDone), r.statusKey(model.StatusPastDue), r.dueKey()}
	n, err := markPastDueScript.Run(ctx, r.client, keys, now.UnixMicro(), r.itemPrefix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("mark past due: %w", err)
	}
	return n, nil
}

// write stores the item document and its index entries in one MULTI block.
func (r *RedisTodoRepository) write(ctx context.Context, item *model.TodoItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	id := formatID(item.ID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.itemKey(id), data, 0)
		pipe.ZAdd(ctx, r.createdKey(), &redis.Z{Score: float64(item.CreationDatetime.UnixMicro()), Member: id})
		pipe.ZAdd(ctx, r.dueKey(), &redis.Z{Score: float64(item.DueDatetime.UnixMicro()), Member: id})
		for _, status := range allStatuses {
			if status != item.Status {
				pipe.SRem(ctx, r.statusKey(status), id)
			}
		}
		pipe.SAdd(ctx, r.statusKey(item.Status), id)
		return nil
	})
	return err
}

func (r *RedisTodoRepository) load(ctx context.Context, ids []string) ([]model.TodoItem, error) {
	items := make([]model.TodoItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.itemKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var item model.TodoItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sortByCreation(items)
	return items, nil
}

func sortByCreation(items []model.TodoItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreationDatetime.Equal(items[j].CreationDatetime) {
			return items[i].CreationDatetime.Before(items[j].CreationDatetime)
		}
		return items[i].ID < items[j].ID
	})
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
