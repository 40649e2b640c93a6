package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// NextExecutionTime 计算cron表达式在now之后的下一次执行时间（对外导出）
// 使用标准五段式cron（分 时 日 月 周），与调度任务的配置格式一致
func NextExecutionTime(cronExpr string, now time.Time) (time.Time, error) {
	if cronExpr == "" {
		return time.Time{}, fmt.Errorf("cron表达式不能为空")
	}
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cron表达式 %q 无效: %w", cronExpr, err)
	}
	return schedule.Next(now), nil
}
