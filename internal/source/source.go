// Package source 提供原始心率通知的传输层实现
package source

import (
	"context"
	"sync"

	"wisefido-hrm/internal/models"
)

// Source 原始通知来源
// Notifications 返回的通道按到达顺序交付完整 payload；Stop 后通道关闭。
type Source interface {
	Start(ctx context.Context) error
	Notifications() <-chan models.Notification
	Stop(ctx context.Context) error
}

// pipe 传输回调与采集循环之间的有序通道
// 回调 goroutine 调用 push；shutdown 之后的 push 被丢弃，通道只在所有 push 返回后关闭。
type pipe struct {
	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
	done     chan struct{}
	out      chan models.Notification
}

func newPipe(bufferSize int) *pipe {
	return &pipe{
		done: make(chan struct{}),
		out:  make(chan models.Notification, bufferSize),
	}
}

// push 阻塞直到通知被缓冲或 pipe 关闭
func (p *pipe) push(n models.Notification) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	select {
	case p.out <- n:
		return true
	case <-p.done:
		return false
	}
}

// shutdown 拒绝后续 push，返回 false 表示已经关闭过
func (p *pipe) shutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.stopped = true
	close(p.done)
	return true
}

// closeOut 等待进行中的 push 结束后关闭输出通道，须在 shutdown 之后调用
func (p *pipe) closeOut() {
	p.inflight.Wait()
	close(p.out)
}
