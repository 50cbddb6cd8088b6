package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barcodersync/internal/fs"
)

func lf(names ...string) []fs.LocalFile {
	files := make([]fs.LocalFile, 0, len(names))
	for _, n := range names {
		files = append(files, fs.LocalFile{Name: n, Path: "/photos/" + n, MimeType: "image/jpeg"})
	}
	return files
}

func rf(names ...string) []fs.RemoteFile {
	files := make([]fs.RemoteFile, 0, len(names))
	for i, n := range names {
		files = append(files, fs.RemoteFile{ID: string(rune('a' + i)), Name: n})
	}
	return files
}

func TestBuildPlanDiff(t *testing.T) {
	plan := BuildPlan(lf("A.jpg", "B.jpg", "C.jpg"), rf("B.jpg"))

	require.Len(t, plan.ToUpload, 2)
	assert.Equal(t, "A.jpg", plan.ToUpload[0].Name)
	assert.Equal(t, "C.jpg", plan.ToUpload[1].Name)
	assert.Equal(t, []string{"B.jpg"}, plan.AlreadyPresent)
}

func TestBuildPlanPartition(t *testing.T) {
	// 划分性质：ToUpload 和 AlreadyPresent 互斥且并集等于本地全集
	local := lf("1.jpg", "2.jpg", "3.jpg", "4.jpg")
	plan := BuildPlan(local, rf("2.jpg", "4.jpg", "only-remote.jpg"))

	seen := make(map[string]int)
	for _, f := range plan.ToUpload {
		seen[f.Name]++
	}
	for _, n := range plan.AlreadyPresent {
		seen[n]++
	}

	require.Len(t, seen, len(local))
	for _, f := range local {
		assert.Equal(t, 1, seen[f.Name], "每个本地文件必须恰好出现一次: %s", f.Name)
	}
}

func TestBuildPlanIdempotent(t *testing.T) {
	local := lf("A.jpg", "B.jpg")
	remote := rf("B.jpg")

	first := BuildPlan(local, remote)
	second := BuildPlan(local, remote)
	assert.Equal(t, first, second)
}

func TestBuildPlanCaseSensitive(t *testing.T) {
	// 比对键区分大小写，不做归一化
	plan := BuildPlan(lf("photo.jpg"), rf("PHOTO.jpg"))
	require.Len(t, plan.ToUpload, 1)
	assert.Empty(t, plan.AlreadyPresent)
}

func TestBuildPlanEmptyInventories(t *testing.T) {
	plan := BuildPlan(nil, nil)
	assert.Empty(t, plan.ToUpload)
	assert.Empty(t, plan.AlreadyPresent)

	plan = BuildPlan(nil, rf("x.jpg"))
	assert.Empty(t, plan.ToUpload)
}

func TestBuildPlanKeepsScanOrder(t *testing.T) {
	plan := BuildPlan(lf("c.jpg", "a.jpg", "b.jpg"), nil)
	got := make([]string, 0, 3)
	for _, f := range plan.ToUpload {
		got = append(got, f.Name)
	}
	assert.Equal(t, []string{"c.jpg", "a.jpg", "b.jpg"}, got)
}

func TestClassifyFailure(t *testing.T) {
	assert.Equal(t, FailQuotaExceeded, classifyFailure(fs.ErrQuotaExceeded))
	assert.Equal(t, FailRemoteUnavailable, classifyFailure(fs.ErrRemoteUnavailable))
	assert.Equal(t, FailOther, classifyFailure(assert.AnError))
}
