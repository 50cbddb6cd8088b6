package database

import "time"

// SyncRun 一轮同步完成后落库的运行记录
// 只用于状态页和排查，引擎的同步决策从不读取这些记录
// 存入数据库时序列化为 JSON
type SyncRun struct {
	// 本轮同步的唯一 ID (uuid)
	ID string `json:"id"`

	// 解析到的云端文件夹名
	Folder string `json:"folder"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Uploaded int `json:"uploaded"`
	Skipped  int `json:"skipped"`

	// 逐文件的失败记录，为空表示整轮全部成功
	Failures []RunFailure `json:"failures,omitempty"`
}

// RunFailure 单个文件的失败摘要
type RunFailure struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Partial 本轮是否有文件失败 (部分失败仍算一次完成的运行)
func (r *SyncRun) Partial() bool {
	return len(r.Failures) > 0
}
