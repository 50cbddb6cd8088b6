package database

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// RunsBucket 运行记录所在的 Bucket
	RunsBucket = "SyncRuns"
)

// Journal 基于 BoltDB 的同步运行记录
type Journal struct {
	conn *bbolt.DB
}

// NewJournal 初始化并打开运行记录数据库
func NewJournal(dbPath string) (*Journal, error) {
	// Timeout 选项防止两个进程同时打开同一个数据库导致死锁
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开 BoltDB 失败: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(RunsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("创建 Bucket 失败: %w", err)
	}

	return &Journal{conn: db}, nil
}

// Close 关闭数据库连接
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Append 追加一条运行记录
// Key 使用自增序号的定宽形式，保证游标顺序即时间顺序
func (j *Journal) Append(run *SyncRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}

	return j.conn.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RunsBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d", seq)
		return b.Put([]byte(key), data)
	})
}

// Recent 返回最近的 n 条运行记录，新的在前
func (j *Journal) Recent(n int) ([]*SyncRun, error) {
	if n <= 0 {
		return nil, nil
	}

	// 预分配容量只按存量封顶，n 本身可以很大
	result := make([]*SyncRun, 0, min(n, 64))
	err := j.conn.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(RunsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(result) < n; k, v = c.Prev() {
			var run SyncRun
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("解析数据失败 key=%s: %w", string(k), err)
			}
			result = append(result, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
