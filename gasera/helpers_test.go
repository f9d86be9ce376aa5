package gasera

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/logger"
)

var errLinkDown = errors.New("link down")

// fakeLink answers commands from a table keyed by opcode.
type fakeLink struct {
	mu        sync.Mutex
	replies   map[string]string
	sent      []string
	reachable bool
}

func newFakeLink(replies map[string]string) *fakeLink {
	return &fakeLink{replies: replies, reachable: true}
}

func (l *fakeLink) SendCommand(_ context.Context, command string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent = append(l.sent, command)

	op, _, err := frame.Decode(command)
	if err != nil {
		return "", err
	}
	reply, ok := l.replies[op]
	if !ok {
		return "", errLinkDown
	}

	return reply, nil
}

func (l *fakeLink) IsReachable(context.Context, time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.reachable
}

func (l *fakeLink) setReachable(v bool) {
	l.mu.Lock()
	l.reachable = v
	l.mu.Unlock()
}

func (l *fakeLink) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.sent))
	copy(out, l.sent)

	return out
}

func newTestDevice(replies map[string]string) (*Device, *fakeLink) {
	l := newFakeLink(replies)
	return NewDevice(l, WithDeviceLogger(logger.NewNop())), l
}
