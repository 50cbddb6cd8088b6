package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"barcodersync/internal/fs"
)

// quotaReasons Drive API 配额类错误的 reason 值
var quotaReasons = map[string]bool{
	"storageQuotaExceeded":          true,
	"quotaExceeded":                 true,
	"userRateLimitExceeded":         false, // 限流属于暂时不可用，不是空间不足
	"teamDriveFileLimitExceeded":    true,
	"activeItemCreateLimitExceeded": true,
}

// classify 把 Drive API / 传输层错误归类为引擎可判断的哨兵错误
func classify(err error) error {
	if err == nil {
		return nil
	}

	// 主动取消原样返回，调用方据此区分"被中断"和"真出错"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, item := range apiErr.Errors {
			if quotaReasons[item.Reason] {
				return fmt.Errorf("%w: %v", fs.ErrQuotaExceeded, err)
			}
		}

		switch {
		case apiErr.Code == http.StatusUnauthorized,
			apiErr.Code == http.StatusForbidden,
			apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", fs.ErrRemoteUnavailable, err)
		default:
			// 其余 4xx (请求本身有问题) 不归类，原样上报
			return err
		}
	}

	// 非 API 错误基本都是网络/传输层故障
	return fmt.Errorf("%w: %v", fs.ErrRemoteUnavailable, err)
}
