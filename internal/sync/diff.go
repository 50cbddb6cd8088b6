package sync

import (
	"errors"

	"barcodersync/internal/fs"
)

// ErrSyncInProgress 已有一轮同步在进行中，本次请求被直接拒绝
// 这是并发控制信号，不代表同步逻辑出错
var ErrSyncInProgress = errors.New("sync already in progress")

// BuildPlan 计算本地快照与云端清单的差集，纯函数，无任何 IO
// 比对键是完整文件名，区分大小写，不做任何归一化，也不比内容：
// 同名即视为已同步，本地改了内容的同名文件不会被重新上传
func BuildPlan(local []fs.LocalFile, remote []fs.RemoteFile) Plan {
	remoteNames := make(map[string]bool, len(remote))
	for _, r := range remote {
		remoteNames[r.Name] = true
	}

	plan := Plan{
		ToUpload:       make([]fs.LocalFile, 0, len(local)),
		AlreadyPresent: make([]string, 0),
	}
	for _, l := range local {
		if remoteNames[l.Name] {
			plan.AlreadyPresent = append(plan.AlreadyPresent, l.Name)
		} else {
			plan.ToUpload = append(plan.ToUpload, l)
		}
	}
	return plan
}

// classifyFailure 将上传错误映射为结果中的失败分类
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, fs.ErrQuotaExceeded):
		return FailQuotaExceeded
	case errors.Is(err, fs.ErrRemoteUnavailable):
		return FailRemoteUnavailable
	default:
		return FailOther
	}
}
