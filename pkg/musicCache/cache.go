// Package musiccache memoizes song identifier lookups in an append-only
// "key => value" file so they survive restarts.
package musiccache

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	kvSep    = " => "
	kvFormat = "%s" + kvSep + "%s\n"
)

// Cache 持久化的键值缓存
type Cache struct {
	path    string
	entries sync.Map
	fileMu  sync.Mutex
}

// Open loads the cache file at path, creating it and its directory when
// missing. Malformed lines are skipped; a later line wins over an earlier
// one with the same key.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("failed to open cache file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), kvSep)
		if !ok || key == "" {
			continue
		}
		c.entries.Store(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}
	return c, nil
}

// Add stores value under key unless the key is already cached.
func (c *Cache) Add(key, value string) error {
	key = flatten(key)
	value = flatten(value)
	if key == "" {
		return errors.New("empty cache key")
	}
	if _, loaded := c.entries.LoadOrStore(key, value); loaded {
		return nil
	}

	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open cache file %s: %w", c.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, kvFormat, key, value); err != nil {
		return fmt.Errorf("failed to append to cache file %s: %w", c.path, err)
	}
	return nil
}

// Get 读取缓存
func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.entries.Load(flatten(key))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// 键值都必须保持在一行内，且键中不能出现分隔符
func flatten(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.ReplaceAll(strings.TrimSpace(s), kvSep, " = ")
}
