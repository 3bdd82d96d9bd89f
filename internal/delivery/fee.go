package delivery

import "math"

// FeePolicy 配送费策略：起步价 + 超出免费里程部分按公里计费。
// Quote 是纯函数，距离单调不减。
type FeePolicy struct {
	BaseCents  int64   // 起步价（分）
	FreeKm     float64 // 免费里程
	PerKmCents int64   // 超出部分每公里加价（分），不足一公里向上取整
}

// Quote 按直线距离（公里）计算配送费（分）。
func (p FeePolicy) Quote(distanceKm float64) int64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	fee := p.BaseCents
	if distanceKm > p.FreeKm {
		extra := math.Ceil(distanceKm - p.FreeKm)
		fee += int64(extra) * p.PerKmCents
	}
	return fee
}
