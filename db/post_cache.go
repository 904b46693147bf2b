package db

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"posts-api/models"
)

const (
	postCachePrefix    = "post:"
	postGenerationKey  = "posts:generation"
	postTombstone      = ""
	PostCacheTTL       = 7 * 24 * time.Hour
	PostTombstoneTTL   = time.Minute
	postEvictBatchSize = 100
)

// CachedPostStore serves GetPost from Redis before falling back to next.
//
// Entries are written with SETNX so a lookup that read a row before a
// concurrent delete cannot overwrite the tombstone the delete leaves behind.
// Reset bumps a generation counter that is part of every key, which orphans
// entries written by lookups that started before the reset.
// Redis failures are logged and never fail the request.
type CachedPostStore struct {
	next         PostStore
	redis        *redis.Client
	ttl          time.Duration
	tombstoneTTL time.Duration
}

func NewCachedPostStore(next PostStore, client *redis.Client, ttl time.Duration) *CachedPostStore {
	return &CachedPostStore{next: next, redis: client, ttl: ttl, tombstoneTTL: PostTombstoneTTL}
}

func postCacheKey(generation int64, id string) string {
	return postCachePrefix + strconv.FormatInt(generation, 10) + ":" + id
}

func (s *CachedPostStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.redis.Get(ctx, postGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *CachedPostStore) CreatePost(ctx context.Context, post models.Post) error {
	if err := s.next.CreatePost(ctx, post); err != nil {
		return err
	}
	if gen, err := s.generation(ctx); err == nil {
		if err := s.redis.Del(ctx, postCacheKey(gen, post.ID)).Err(); err != nil {
			log.Printf("error clearing cache entry for post %s: %v", post.ID, err)
		}
	}
	return nil
}

func (s *CachedPostStore) GetPost(ctx context.Context, id string) (models.Post, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		log.Printf("error reading post cache generation: %v", err)
		return s.next.GetPost(ctx, id)
	}
	key := postCacheKey(gen, id)

	cachedData, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil && string(cachedData) == postTombstone:
		return models.Post{}, errors.Wrapf(ErrPostNotFound, "post %s", id)
	case err == nil:
		var post models.Post
		if err := json.Unmarshal(cachedData, &post); err == nil {
			return post, nil
		}
		log.Printf("discarding corrupt cache entry for post %s", id)
		s.redis.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		log.Printf("error fetching post %s from Redis cache: %v", id, err)
	}

	post, err := s.next.GetPost(ctx, id)
	if err != nil {
		return models.Post{}, err
	}

	if jsonData, err := json.Marshal(post); err == nil {
		if err := s.redis.SetNX(ctx, key, jsonData, s.ttl).Err(); err != nil {
			log.Printf("error caching post %s: %v", id, err)
		}
	}

	return post, nil
}

func (s *CachedPostStore) DeletePost(ctx context.Context, id string) error {
	err := s.next.DeletePost(ctx, id)
	if err != nil && !errors.Is(err, ErrPostNotFound) {
		return err
	}

	gen, genErr := s.generation(ctx)
	if genErr == nil {
		genErr = s.redis.Set(ctx, postCacheKey(gen, id), postTombstone, s.tombstoneTTL).Err()
	}
	if genErr != nil {
		log.Printf("error evicting post %s from Redis cache: %v", id, genErr)
	}
	return err
}

// ListPosts is not cached: the expire filter depends on the time of the call.
func (s *CachedPostStore) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	return s.next.ListPosts(ctx, filter)
}

func (s *CachedPostStore) DeleteAllPosts(ctx context.Context) (int64, error) {
	deleted, err := s.next.DeleteAllPosts(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.redis.Incr(ctx, postGenerationKey).Err(); err != nil {
		log.Printf("error bumping post cache generation: %v", err)
	}
	if err := s.evictAll(ctx); err != nil {
		log.Printf("error evicting posts from Redis cache: %v", err)
	}
	return deleted, nil
}

// evictAll frees the memory of entries orphaned by a generation bump.
func (s *CachedPostStore) evictAll(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, postCachePrefix+"*", postEvictBatchSize).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == postEvictBatchSize {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return s.redis.Del(ctx, keys...).Err()
	}
	return nil
}

func (s *CachedPostStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
