package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity       float64 // 时间重力
	WeightHelpful float64 // helpful 标记权重
	WeightAnswer  float64 // 回答数权重
	WeightView    float64 // 浏览量权重（数量级大，权重给小）
	ScaleFactor   float64 // 放大系数
}

var DefaultConfig = RankConfig{
	Gravity:       1.5,
	WeightHelpful: 3.0,
	WeightAnswer:  2.0,
	WeightView:    0.05,
	ScaleFactor:   100.0, // 让分数落在 0-100 区间
}

// CalculateHotScore 计算问题热度分：加权互动取对数平滑，再按发布时间衰减
func CalculateHotScore(t time.Time, helpful, answers, views int) float64 {
	hours := time.Since(t).Hours()

	weightedSum := (float64(helpful) * DefaultConfig.WeightHelpful) +
		(float64(answers) * DefaultConfig.WeightAnswer) +
		(float64(views) * DefaultConfig.WeightView)

	if weightedSum < 0 {
		weightedSum = 0
	}

	// log10(sum + 1) -> sum=0 时结果为 0
	logScore := math.Log10(weightedSum + 1)

	numerator := logScore * DefaultConfig.ScaleFactor

	decay := math.Pow(hours+2, DefaultConfig.Gravity)

	return numerator / decay
}
