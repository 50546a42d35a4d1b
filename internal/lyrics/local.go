package lyrics

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go-lyrics/pkg/lrc"

	"github.com/dhowden/tag"
)

// localPath 把 file:// 地址转换成本地路径，其他地址返回空串
func localPath(rawURL string) string {
	if !strings.HasPrefix(rawURL, "file://") {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return ""
	}
	return u.Path
}

// siblingLyrics 读取与音频文件同名的 .lrc
func siblingLyrics(audioPath string) ([]byte, bool) {
	lrcPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".lrc"
	data, err := os.ReadFile(lrcPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("path", lrcPath).Msg("Failed to read sibling lyrics")
		}
		return nil, false
	}
	if !timed(data) {
		logger.Warn().Str("path", lrcPath).Msg("Sibling lyrics file has no timed lines")
		return nil, false
	}
	return data, true
}

// embeddedLyrics 读取音频文件标签里的歌词（USLT / LYRICS 等）
func embeddedLyrics(audioPath string) ([]byte, bool) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		logger.Debug().Err(err).Str("path", audioPath).Msg("No readable tags")
		return nil, false
	}
	text := m.Lyrics()
	if !lrc.HasTimedLines(text) {
		return nil, false
	}
	return []byte(text), true
}
