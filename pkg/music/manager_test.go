package music

import (
	"context"
	"errors"
	"testing"
)

// mockProvider 模拟音乐提供商
type mockProvider struct {
	name       string
	searchFail bool
	lyricsFail bool
	lyrics     string
}

func (m *mockProvider) SearchSong(ctx context.Context, title, artist string) (string, error) {
	if m.searchFail {
		return "", nil
	}
	return "mock-song-id", nil
}

func (m *mockProvider) GetLyrics(ctx context.Context, songID string) (string, error) {
	if m.lyricsFail {
		return "", errors.New("lyrics unavailable")
	}
	if songID != "mock-song-id" {
		return "", errors.New("unknown song id " + songID)
	}
	if m.lyrics != "" {
		return m.lyrics, nil
	}
	return "[00:10.00]Test lyrics", nil
}

func (m *mockProvider) GetProviderName() string {
	return m.name
}

// durationProvider 只支持按时长查询
type durationProvider struct {
	mockProvider
	gotDuration float64
}

func (d *durationProvider) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	d.gotDuration = duration
	return "[00:01.00]by duration", nil
}

// plainDurationProvider 按时长查询只返回纯文本
type plainDurationProvider struct {
	mockProvider
}

func (p *plainDurationProvider) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	return "plain text only", nil
}

// TestGetLyricsByInfo 测试新的封装方法
func TestGetLyricsByInfo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		manager := NewManager([]MusicAPI{&mockProvider{name: "TestProvider"}})
		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 0)

		if err != nil {
			t.Errorf("Expected success, got error: %v", err)
		}
		if lyrics != "[00:10.00]Test lyrics" {
			t.Errorf("Expected '[00:10.00]Test lyrics', got '%s'", lyrics)
		}
	})

	// 搜索失败但有回退提供商
	t.Run("FailoverSuccess", func(t *testing.T) {
		failProvider := &mockProvider{name: "FailProvider", searchFail: true}
		successProvider := &mockProvider{name: "SuccessProvider", lyrics: "[00:02.00]fallback"}

		manager := NewManager([]MusicAPI{failProvider, successProvider})
		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 0)

		if err != nil {
			t.Errorf("Expected success with failover, got error: %v", err)
		}
		if lyrics != "[00:02.00]fallback" {
			t.Errorf("Expected fallback lyrics, got '%s'", lyrics)
		}
	})

	t.Run("AllFail", func(t *testing.T) {
		manager := NewManager([]MusicAPI{
			&mockProvider{name: "FailProvider1", searchFail: true},
			&mockProvider{name: "FailProvider2", lyricsFail: true},
		})
		if _, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 0); err == nil {
			t.Error("Expected error when all providers fail, got success")
		}
	})

	t.Run("DurationAware", func(t *testing.T) {
		provider := &durationProvider{mockProvider: mockProvider{name: "Duration"}}
		manager := NewManager([]MusicAPI{provider})

		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Song", "Artist", 215)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lyrics != "[00:01.00]by duration" || provider.gotDuration != 215 {
			t.Errorf("duration lookup not used: lyrics=%q duration=%v", lyrics, provider.gotDuration)
		}
	})

	// 纯文本歌词不能同步，应继续尝试下一个提供商
	t.Run("UntimedLyricsFailOver", func(t *testing.T) {
		plain := &mockProvider{name: "Plain", lyrics: "just some plain lyrics\nwithout timestamps"}
		plainByDuration := &plainDurationProvider{mockProvider: mockProvider{name: "PlainDuration"}}
		timed := &mockProvider{name: "Timed", lyrics: "[00:04.00]timed"}

		manager := NewManager([]MusicAPI{plain, plainByDuration, timed})
		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Song", "Artist", 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lyrics != "[00:04.00]timed" {
			t.Errorf("expected timed lyrics from the last provider, got %q", lyrics)
		}

		only := NewManager([]MusicAPI{plain})
		if _, err := only.GetLyricsByInfo(context.Background(), "Song", "Artist", 0); err == nil {
			t.Error("expected error when only untimed lyrics are available")
		}
	})

	t.Run("NoProviders", func(t *testing.T) {
		if _, err := NewManager(nil).GetLyricsByInfo(context.Background(), "a", "b", 0); err == nil {
			t.Error("expected error without providers")
		}
	})
}

func TestSearchSongRoutesToProvider(t *testing.T) {
	first := &mockProvider{name: "First", searchFail: true}
	second := &mockProvider{name: "Second", lyrics: "[00:03.00]second"}
	manager := NewManager([]MusicAPI{first, second})

	songID, err := manager.SearchSong(context.Background(), "Song", "Artist")
	if err != nil {
		t.Fatalf("SearchSong() error: %v", err)
	}
	if songID != "1:mock-song-id" {
		t.Errorf("SearchSong() = %q", songID)
	}

	lyrics, err := manager.GetLyrics(context.Background(), songID)
	if err != nil || lyrics != "[00:03.00]second" {
		t.Errorf("GetLyrics() = %q, %v", lyrics, err)
	}

	for _, bad := range []string{"mock-song-id", "9:mock-song-id", "x:y"} {
		if _, err := manager.GetLyrics(context.Background(), bad); err == nil {
			t.Errorf("GetLyrics(%q) expected error", bad)
		}
	}
}

// TestManagerInterfaceCompliance 测试Manager是否正确实现了接口
func TestManagerInterfaceCompliance(t *testing.T) {
	manager := NewManager([]MusicAPI{&mockProvider{name: "TestProvider"}})

	var _ MusicAPI = manager
	var _ MusicManager = manager

	name := manager.GetProviderName()
	expected := "Manager[Primary: TestProvider]"
	if name != expected {
		t.Errorf("Expected provider name '%s', got '%s'", expected, name)
	}
	if got := NewManager(nil).GetProviderName(); got != "Manager[No Providers]" {
		t.Errorf("unexpected empty manager name %q", got)
	}
}

func TestCreateManager(t *testing.T) {
	manager, err := CreateManager([]string{"TTPlayer", "bogus", "163", "lrclib"}, Options{})
	if err != nil {
		t.Fatalf("CreateManager() error: %v", err)
	}
	names := manager.GetProviderNames()
	want := []string{"TTPlayer", "NetEase Cloud Music", "LRCLib"}
	if len(names) != len(want) {
		t.Fatalf("providers = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("provider %d = %q, want %q", i, names[i], want[i])
		}
	}

	if _, err := CreateManager([]string{"bogus"}, Options{}); err == nil {
		t.Error("expected error when no provider can be created")
	}
}

func TestGetProviderByName(t *testing.T) {
	for _, name := range []string{"ttplayer", "qianqian", "netease", "网易云", "lrclib"} {
		if _, err := GetProviderByName(name); err != nil {
			t.Errorf("GetProviderByName(%q) error: %v", name, err)
		}
	}
	if _, err := GetProviderByName("kugou"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
