package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Gateway 外部支付网关。真实环境由收单机构提供，这里只约定接口。
type Gateway interface {
	// Charge 发起扣款，成功返回网关回执号。
	Charge(ctx context.Context, orderID string, amountCents int64, method Method) (string, error)
}

// MockGateway 本地模拟网关：按失败率随机拒付，其余按成功处理。
// 用于开发与测试环境。
type MockGateway struct {
	failureRate float64
	delay       time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockGateway(failureRate float64, delay time.Duration) *MockGateway {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &MockGateway{
		failureRate: failureRate,
		delay:       delay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *MockGateway) Charge(ctx context.Context, orderID string, amountCents int64, method Method) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("invalid charge amount: %d", amountCents)
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.mu.Lock()
	failed := g.rng.Float64() < g.failureRate
	g.mu.Unlock()
	if failed {
		return "", fmt.Errorf("payment declined for order %s", orderID)
	}
	return "txn-" + uuid.NewString(), nil
}
