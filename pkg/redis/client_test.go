package redis

import (
	"testing"
)

func TestNewClientUnreachable(t *testing.T) {
	// 端口 1 上不会有 redis
	if _, err := NewClient("127.0.0.1:1", "", 0, "lyrics:"); err == nil {
		t.Fatal("expected connection error")
	}
}
