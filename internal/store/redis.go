// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"burn.note/internal/models"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each message at message:<id> and its responses as a list
// at responses:<id>, both gob-encoded and expiring with the retention window
// so Redis itself reclaims stale records.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	ttl := time.Until(msg.ExpiresAt)
	if ttl <= 0 {
		return errors.New("message already expired")
	}

	return r.client.Set(ctx, messageKey(msg.ID), data, ttl).Err()
}

func (r *RedisStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	data, err := r.client.Get(ctx, messageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeMessage(data)
}

func (r *RedisStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	// SetXX + KeepTTL: the update never resurrects a deleted message and
	// never extends the retention window.
	ok, err := r.client.SetXX(ctx, messageKey(msg.ID), data, redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// destroyScript deletes the message and its response list in one step, or
// neither when the message is already gone.
var destroyScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	redis.call('DEL', KEYS[1], KEYS[2])
	return 1
`)

func (r *RedisStore) DeleteMessage(ctx context.Context, id string) error {
	deleted, err := destroyScript.Run(ctx, r.client, []string{messageKey(id), responsesKey(id)}).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) SaveResponse(ctx context.Context, resp *models.Response) error {
	data, err := encodeResponse(resp)
	if err != nil {
		return err
	}

	msgKey := messageKey(resp.MessageID)
	respKey := responsesKey(resp.MessageID)

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, msgKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}

		// Responses inherit the parent's remaining TTL.
		ttl := tx.TTL(ctx, msgKey).Val()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, respKey, data)
			if ttl > 0 {
				pipe.Expire(ctx, respKey, ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := r.client.Watch(ctx, txf, msgKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return redis.TxFailedErr
}

func (r *RedisStore) ListResponses(ctx context.Context, messageID string) ([]*models.Response, error) {
	items, err := r.client.LRange(ctx, responsesKey(messageID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	responses := make([]*models.Response, 0, len(items))
	for _, item := range items {
		resp, err := decodeResponse([]byte(item))
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func messageKey(id string) string {
	return "message:" + id
}

func responsesKey(id string) string {
	return "responses:" + id
}

func encodeMessage(msg *models.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMessage(data []byte) (*models.Message, error) {
	var msg models.Message
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func encodeResponse(resp *models.Response) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(resp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResponse(data []byte) (*models.Response, error) {
	var resp models.Response
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
