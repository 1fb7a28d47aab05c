package session

import (
	"math"
	"sync"

	"wisefido-hrm/internal/models"
)

// Aggregator 单次采集会话的样本累加器
// 会话开始时创建，结束后丢弃；样本只追加，顺序即到达顺序（RMSSD 依赖 R-R 顺序）。
type Aggregator struct {
	sessionID string

	mu         sync.Mutex
	closed     bool
	heartRates []int
	rrSamples  []float64 // 秒
}

// NewAggregator 创建会话累加器（Open 状态）
func NewAggregator(sessionID string) *Aggregator {
	return &Aggregator{sessionID: sessionID}
}

// SessionID 会话 ID
func (a *Aggregator) SessionID() string {
	return a.sessionID
}

// Record 追加一条读数的心率和全部 R-R 间期
// 会话关闭后不再接受，返回 false。
func (a *Aggregator) Record(reading *models.Reading) bool {
	if reading == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return false
	}
	a.heartRates = append(a.heartRates, int(reading.HeartRate))
	a.rrSamples = append(a.rrSamples, reading.RRIntervals...)
	return true
}

// Close 进入 Closed 状态，可重复调用
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

// Closed 是否已关闭
func (a *Aggregator) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Summarize 计算当前统计结果，不修改状态，任何时刻均可调用
func (a *Aggregator) Summarize() models.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := models.Summary{
		SessionID:      a.sessionID,
		HeartRateCount: len(a.heartRates),
		RRCount:        len(a.rrSamples),
		HRVStatus:      models.HRVStatusInsufficientData,
	}

	if minHR, maxHR, mean, ok := heartRateStats(a.heartRates); ok {
		summary.MinHeartRate = &minHR
		summary.MaxHeartRate = &maxHR
		summary.MeanHeartRate = &mean
	}

	if rmssd, ok := RMSSD(a.rrSamples); ok {
		summary.RMSSDMs = &rmssd
		summary.HRVStatus = models.HRVStatusOK
	}

	return summary
}

func heartRateStats(samples []int) (minHR, maxHR int, mean float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, 0, false
	}

	minHR, maxHR = samples[0], samples[0]
	sum := 0
	for _, hr := range samples {
		if hr < minHR {
			minHR = hr
		}
		if hr > maxHR {
			maxHR = hr
		}
		sum += hr
	}
	return minHR, maxHR, float64(sum) / float64(len(samples)), true
}

// RMSSD 计算 R-R 序列（秒）相邻差值的均方根，单位毫秒
// 样本少于 2 个时 ok 为 false。
func RMSSD(rrSeconds []float64) (rmssdMs float64, ok bool) {
	if len(rrSeconds) < 2 {
		return 0, false
	}

	var sumSq float64
	for i := 0; i < len(rrSeconds)-1; i++ {
		d := rrSeconds[i+1]*1000 - rrSeconds[i]*1000
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(rrSeconds)-1)), true
}
