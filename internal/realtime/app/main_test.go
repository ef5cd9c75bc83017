package app

import (
	"os"
	"sync"
	"testing"

	"uthread_service/internal/realtime/domain"
	"uthread_service/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "realtime-test-log")
	if err != nil {
		panic(err)
	}
	logger.Log = logger.Initialize("realtime_test", dir)

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// fakeConn in-memory ClientConn recording every event written to it
type fakeConn struct {
	mu     sync.Mutex
	events []domain.WSResponse
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if resp, ok := v.(domain.WSResponse); ok {
		c.events = append(c.events, resp)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) eventsOf(event domain.Event) []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.WSResponse
	for _, e := range c.events {
		if e.Event == string(event) {
			out = append(out, e)
		}
	}
	return out
}
