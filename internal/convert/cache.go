// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// CachedConverter memoizes results of an inner Converter. Entries are keyed
// by path, modification time and size, so an edited file misses the cache.
type CachedConverter struct {
	inner Converter
	cache *cache.Cache
}

// NewCachedConverter wraps inner with a cache whose entries expire after ttl.
func NewCachedConverter(inner Converter, ttl time.Duration) *CachedConverter {
	return &CachedConverter{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Convert returns the cached result for path or converts and caches it.
// Failures are not cached. Callers receive a copy they may modify.
func (c *CachedConverter) Convert(path string) (*types.ConversionResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey(path, info)

	if v, ok := c.cache.Get(key); ok {
		res := *v.(*types.ConversionResult)
		res.Validation.Issues = slices.Clone(res.Validation.Issues)
		return &res, nil
	}

	res, err := c.inner.Convert(path)
	if err != nil {
		return nil, err
	}
	stored := *res
	stored.Validation.Issues = slices.Clone(res.Validation.Issues)
	c.cache.SetDefault(key, &stored)
	return res, nil
}

// Len returns the number of cached results, including expired ones not yet
// purged.
func (c *CachedConverter) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
}
