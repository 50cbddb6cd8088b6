package sync

import (
	"time"

	"barcodersync/internal/fs"
)

// Plan 单次同步的上传计划
// 每轮根据两份快照重新计算，从不持久化
type Plan struct {
	ToUpload       []fs.LocalFile // 待上传文件，保持本地扫描顺序
	AlreadyPresent []string       // 云端已存在同名文件，跳过
}

// FailureKind 单个文件上传失败的分类
type FailureKind string

const (
	FailRemoteUnavailable FailureKind = "remote_unavailable"
	FailQuotaExceeded     FailureKind = "quota_exceeded"
	FailOther             FailureKind = "other"
)

// FileFailure 一个文件的上传失败记录
// 本轮不重试，文件仍不在云端，下一轮会重新列入计划
type FileFailure struct {
	Name    string      `json:"name"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Result 一次完整同步的结果
// 成功结束时恒有 Uploaded + len(Failures) + Skipped == 本地快照大小
type Result struct {
	RunID     string        `json:"run_id"`
	Folder    string        `json:"folder"` // 解析到的云端文件夹名
	Uploaded  int           `json:"uploaded"`
	Skipped   int           `json:"skipped"`
	Failures  []FileFailure `json:"failures"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
