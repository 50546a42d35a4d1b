package app

import (
	"context"
	"sync"
	"time"

	"go-lyrics/pkg/lrc"

	"github.com/rs/zerolog/log"
)

const (
	tickInterval     = 50 * time.Millisecond
	translateTimeout = 5 * time.Second
	// 最后一行之后再等这么久才认为歌曲结束
	songEndGrace int64 = 5000

	msgBeforeFirst = "♪ 即将开始... ♪"
	msgSongEnd     = "♪ 歌曲结束 ♪"
	msgNoTimed     = "No synchronized lyrics found"
)

// lineAt 返回 posMs 处应显示的行；第一行之前 started 为 false
func lineAt(idx *lrc.Index, posMs int64) (i int, started bool) {
	if idx.Len() == 0 || posMs < idx.Timestamp(0) {
		return 0, false
	}
	return idx.ActiveIndex(posMs), true
}

func songFinished(idx *lrc.Index, posMs int64) bool {
	return idx.Len() > 0 && posMs > idx.Timestamp(idx.Len()-1)+songEndGrace
}

// runScheduler 每 50ms 读取一次播放进度，显示行变化时调用 emit。
// 歌曲结束或 ctx 取消时返回。
func runScheduler(ctx context.Context, idx *lrc.Index, lead time.Duration, getPosition func(context.Context) (int64, error), emit func(i int, text string)) {
	leadMs := lead.Milliseconds()
	lastIndex := -2 // 确保第一次广播

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Lyric scheduler cancelled")
			return
		case <-ticker.C:
		}

		// 每次都重新获取播放器时间，避免累积误差
		pos, err := getPosition(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to read player position")
			continue
		}

		newIndex, started := lineAt(idx, pos+leadMs)
		if !started {
			newIndex = -1
		}

		if newIndex != lastIndex {
			if newIndex >= 0 {
				lineTime := idx.Timestamp(newIndex)
				log.Info().
					Int("index", newIndex).
					Int64("player_ms", pos).
					Int64("lyric_ms", lineTime).
					Int64("time_diff_ms", pos+leadMs-lineTime).
					Str("lyric", idx.Text(newIndex)).
					Msg("Broadcasting lyric")
				emit(newIndex, idx.Text(newIndex))
			} else if lastIndex != -1 {
				emit(-1, msgBeforeFirst)
			}
			lastIndex = newIndex
		}

		if songFinished(idx, pos) {
			log.Info().
				Int64("player_ms", pos).
				Int64("last_lyric_ms", idx.Timestamp(idx.Len()-1)).
				Msg("Song finished")
			emit(-1, msgSongEnd)
			return
		}
	}
}

// translations 后台翻译好的歌词行
type translations struct {
	mu    sync.RWMutex
	lines map[int]string
}

func (t *translations) get(i int) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.lines[i]
	return s, ok
}

func (t *translations) set(i int, s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines[i] = s
}

func (a *App) translateAll(ctx context.Context, texts []string, out *translations) {
	for i, text := range texts {
		if ctx.Err() != nil {
			return
		}
		tctx, cancel := context.WithTimeout(ctx, translateTimeout)
		translated, err := a.translator.Translate(tctx, text)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Failed to translate lyric")
			continue
		}
		if translated != text {
			out.set(i, translated)
		}
	}
}

func (a *App) stopScheduler() {
	a.schedulerMutex.Lock()
	cancel, done := a.schedulerCancel, a.schedulerDone
	a.schedulerCancel, a.schedulerDone = nil, nil
	a.schedulerMutex.Unlock()

	if cancel == nil {
		return
	}
	log.Info().Msg("Stopping previous lyric scheduler")
	cancel()
	<-done
}

func (a *App) startLyricScheduler(parent context.Context, data []byte) {
	a.stopScheduler()

	idx := lrc.NewIndex(nil)
	if status := idx.ParseBytes(data); status != lrc.StatusOK {
		log.Warn().Stringer("status", status).Msg("No timed lyrics lines found")
		a.broadcast(msgNoTimed)
		return
	}
	log.Info().Int("lines_count", idx.Len()).Int64("offset_ms", idx.Offset()).Msg("Starting lyric scheduler")

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	a.schedulerMutex.Lock()
	a.schedulerCancel = cancel
	a.schedulerDone = done
	a.schedulerMutex.Unlock()

	var tr *translations
	if a.translator != nil {
		tr = &translations{lines: make(map[int]string)}
		go a.translateAll(ctx, idx.Lyrics(), tr)
	}

	emit := func(i int, text string) {
		if tr != nil && i >= 0 {
			if translated, ok := tr.get(i); ok {
				text = text + " / " + translated
			}
		}
		a.broadcast(text)
	}

	go func() {
		defer close(done)
		defer log.Info().Msg("Lyric scheduler stopped")
		runScheduler(ctx, idx, a.cfg.App.Lead, a.getPosition, emit)
	}()
}
