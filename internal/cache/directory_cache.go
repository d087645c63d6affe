package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"lexhub/internal/model"
)

// DirectoryCache caches firm search result pages. Writes to the
// directory set a short-lived dirty marker so concurrent readers do not
// re-populate the cache with stale pages.
type DirectoryCache struct {
	client         *redisv9.Client
	pageTTL        time.Duration
	dirtyMarkerTTL time.Duration
}

type cachedPage struct {
	Firms []model.LawFirm `json:"firms"`
	Total int64           `json:"total"`
}

func NewDirectoryCache(client *redisv9.Client, pageTTL, dirtyMarkerTTL time.Duration) *DirectoryCache {
	if pageTTL <= 0 {
		pageTTL = 5 * time.Minute
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &DirectoryCache{
		client:         client,
		pageTTL:        pageTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *DirectoryCache) GetPage(ctx context.Context, searchKey string) ([]model.LawFirm, int64, bool, error) {
	raw, err := c.client.Get(ctx, c.pageKey(searchKey)).Result()
	if err == redisv9.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get directory page failed: %w", err)
	}

	var page cachedPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, 0, false, fmt.Errorf("unmarshal cached directory page failed: %w", err)
	}
	return page.Firms, page.Total, true, nil
}

func (c *DirectoryCache) SetPage(ctx context.Context, searchKey string, firms []model.LawFirm, total int64) error {
	payload, err := json.Marshal(cachedPage{Firms: firms, Total: total})
	if err != nil {
		return fmt.Errorf("marshal directory page failed: %w", err)
	}
	if err := c.client.Set(ctx, c.pageKey(searchKey), payload, c.pageTTL).Err(); err != nil {
		return fmt.Errorf("redis set directory page failed: %w", err)
	}
	return nil
}

// MarkDirty flags the directory as recently written.
func (c *DirectoryCache) MarkDirty(ctx context.Context) error {
	if err := c.client.Set(ctx, c.dirtyKey(), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set directory dirty marker failed: %w", err)
	}
	return nil
}

func (c *DirectoryCache) IsDirty(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey()).Result()
	if err != nil {
		return false, fmt.Errorf("redis check directory dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *DirectoryCache) pageKey(searchKey string) string {
	return "directory:search:" + searchKey
}

func (c *DirectoryCache) dirtyKey() string {
	return "directory:dirty"
}
