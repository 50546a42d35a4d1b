package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go-lyrics/pkg/fileutil"
)

// Store 下载过的歌词缓存
type Store interface {
	// Get 返回缓存的歌词，未命中时 ok 为 false
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte) error
}

var unsafeFilenameRe = regexp.MustCompile(`[\\/:*?"<>|]`)

func sanitizeFilename(name string) string {
	return unsafeFilenameRe.ReplaceAllString(name, "-")
}

// cacheKey 同一首歌在文件和 redis 中使用相同的键
func cacheKey(title, artist string) string {
	return sanitizeFilename(title+"-"+artist) + ".lrc"
}

// fileStore 每首歌一个 .lrc 文件
type fileStore struct {
	dir string
}

func NewFileStore(dir string) Store {
	return &fileStore{dir: dir}
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached lyrics: %w", err)
	}
	return data, true, nil
}

func (s *fileStore) Put(_ context.Context, key string, data []byte) error {
	return fileutil.WriteFileAtomic(filepath.Join(s.dir, key), data, 0644)
}

// bytesClient 是 pkg/redis.Client 中用到的部分
type bytesClient interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
}

type redisStore struct {
	client bytesClient
	ttl    time.Duration
}

// NewRedisStore ttl 为 0 时永不过期
func NewRedisStore(client bytesClient, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.GetBytes(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached lyrics from redis: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *redisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.SetBytes(ctx, key, data, s.ttl); err != nil {
		return fmt.Errorf("failed to store lyrics in redis: %w", err)
	}
	return nil
}
