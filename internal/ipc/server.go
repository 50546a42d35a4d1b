package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"go-lyrics/pkg/fileutil"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "ipc").Logger()

// Server 通过 unix socket 向 GUI 客户端推送当前歌词行
type Server struct {
	socketPath      string
	statusFile      string
	listener        net.Listener
	clientConns     map[net.Conn]struct{}
	clientConnsLock sync.Mutex
	lyrics          string
	lyricsLock      sync.Mutex
	lockFile        *os.File
	lockFilePath    string
}

// NewServer statusFile 为空时不写状态文件
func NewServer(socketPath, statusFile string) *Server {
	return &Server{
		socketPath:   socketPath,
		statusFile:   statusFile,
		clientConns:  make(map[net.Conn]struct{}),
		lockFilePath: socketPath + ".lock",
	}
}

func (s *Server) checkAndCleanOldLock() {
	content, err := os.ReadFile(s.lockFilePath)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pid, ok := parseLockPID(content)
	if !ok {
		logger.Warn().Str("content", strings.TrimSpace(string(content))).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	if !isProcessRunning(pid) {
		logger.Info().Int("old_pid", pid).Msg("Process in lock file is not running, removing lock file")
		os.Remove(s.lockFilePath)
		return
	}

	logger.Info().Int("existing_pid", pid).Msg("Another process is still running")
}

func parseLockPID(content []byte) (int, bool) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// kill(pid, 0) 只检查进程是否存在，不发送信号
func isProcessRunning(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func (s *Server) acquireLock() error {
	s.checkAndCleanOldLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("another lyrics server instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	// 拿到锁之后再清空旧内容
	if err := file.Truncate(0); err == nil {
		_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	}
	if err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	logger.Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile != nil {
		syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
		s.lockFile.Close()
		os.Remove(s.lockFilePath)
		logger.Info().Str("lock_file", s.lockFilePath).Msg("Released process lock")
		s.lockFile = nil
	}
}

func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	logger.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	go s.acceptConnections()

	return nil
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	// 先登记再发送当前歌词，避免漏掉两者之间的广播
	s.clientConnsLock.Lock()
	s.clientConns[conn] = struct{}{}
	s.lyricsLock.Lock()
	current := s.lyrics
	s.lyricsLock.Unlock()
	if current != "" {
		if _, err := conn.Write([]byte(current)); err != nil {
			logger.Error().Err(err).Msg("Failed to send initial lyrics")
		}
	}
	s.clientConnsLock.Unlock()

	logger.Info().Msg("GUI client connected")

	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.clientConnsLock.Lock()
	delete(s.clientConns, conn)
	s.clientConnsLock.Unlock()
	conn.Close()
	logger.Info().Msg("GUI client disconnected")
}

// Broadcast 推送一行歌词给所有客户端，并写入状态文件
func (s *Server) Broadcast(lyrics string) {
	if lyrics != "" && s.statusFile != "" {
		if err := fileutil.WriteFileOverwrite(s.statusFile, []byte(lyrics+"\n"), 0644); err != nil {
			logger.Warn().Err(err).Str("status_file", s.statusFile).Msg("Failed to write status file")
		}
	}
	s.lyricsLock.Lock()
	s.lyrics = lyrics
	s.lyricsLock.Unlock()

	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()

	lyricsBytes := []byte(lyrics)
	for conn := range s.clientConns {
		if _, err := conn.Write(lyricsBytes); err != nil {
			logger.Error().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clientConns, conn)
		}
	}
}

// Current 最近一次广播的内容
func (s *Server) Current() string {
	s.lyricsLock.Lock()
	defer s.lyricsLock.Unlock()
	return s.lyrics
}

func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.clientConnsLock.Lock()
	for conn := range s.clientConns {
		conn.Close()
		delete(s.clientConns, conn)
	}
	s.clientConnsLock.Unlock()
	s.releaseLock()
}
