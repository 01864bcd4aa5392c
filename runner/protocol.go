package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"cachebench/stats"
)

// Control channel between master and workers: newline-delimited JSON
// messages over TCP. Workers say hello, the master answers with start
// (their share of users), workers stream cumulative stats snapshots and
// mark the last one final, the master says quit.

type messageType string

const (
	msgHello messageType = "hello"
	msgStart messageType = "start"
	msgStats messageType = "stats"
	msgQuit  messageType = "quit"
)

type message struct {
	Type        messageType     `json:"type"`
	WorkerID    string          `json:"worker_id,omitempty"`
	Users       int             `json:"users,omitempty"`
	SpawnRate   int             `json:"spawn_rate,omitempty"`
	DurationSec int             `json:"duration_sec,omitempty"`
	Final       bool            `json:"final,omitempty"`
	Stats       *stats.Snapshot `json:"stats,omitempty"`
}

// workerConn wraps one control connection. Reads happen on a single
// goroutine per side; writes are serialized because a worker's interval
// reporter and final report can race.
type workerConn struct {
	id string

	c  net.Conn
	r  *bufio.Reader
	mu sync.Mutex
}

func newWorkerConn(c net.Conn) *workerConn {
	return &workerConn{c: c, r: bufio.NewReader(c)}
}

func (w *workerConn) read() (*message, error) {
	line, err := w.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	var m message
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, fmt.Errorf("malformed control message: %w", err)
	}
	return &m, nil
}

func (w *workerConn) write(m *message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.c.Write(b)
	return err
}

func (w *workerConn) Close() error {
	return w.c.Close()
}
