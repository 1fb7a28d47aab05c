package models

const (
	HRVStatusOK               = "ok"
	HRVStatusInsufficientData = "insufficient_data"
)

// Summary 会话统计结果，构造后不再修改
//
// 心率统计在没有任何样本时为 nil（不是 0）；RMSSDMs 在 R-R 样本少于 2 个时为 nil，
// 此时 HRVStatus 为 "insufficient_data"，与数值 0.0 区分。
type Summary struct {
	SessionID      string `json:"session_id"`
	HeartRateCount int    `json:"heart_rate_count"`
	RRCount        int    `json:"rr_count"`

	MinHeartRate  *int     `json:"min_heart_rate,omitempty"`
	MaxHeartRate  *int     `json:"max_heart_rate,omitempty"`
	MeanHeartRate *float64 `json:"mean_heart_rate,omitempty"`

	RMSSDMs   *float64 `json:"rmssd_ms,omitempty"`
	HRVStatus string   `json:"hrv_status"`
}

// EmptySession 没有任何心率样本
func (s Summary) EmptySession() bool {
	return s.HeartRateCount == 0
}

// InsufficientRR R-R 样本不足以计算 RMSSD
func (s Summary) InsufficientRR() bool {
	return s.RMSSDMs == nil
}
