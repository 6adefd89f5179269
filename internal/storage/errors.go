package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// errorCode 返回 MinIO/S3 错误码（小写），非 minio.ErrorResponse 时为空。
func errorCode(err error) string {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return strings.ToLower(strings.TrimSpace(minioErr.Code))
	}
	return ""
}

// messageContains 兜底匹配被网关或代理包装成字符串的错误。
func messageContains(err error, fragments ...string) bool {
	lower := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// IsNoSuchKey 判断错误是否表示导出对象不存在（NoSuchKey/NotFound）。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "nosuchkey", "notfound":
		return true
	case "":
		return messageContains(err, "nosuchkey", "specified key does not exist", "not found")
	default:
		return false
	}
}

// IsNoSuchBucket 判断错误是否明确表示 Bucket 不存在。
func IsNoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	switch errorCode(err) {
	case "nosuchbucket":
		return true
	case "":
		return messageContains(err, "nosuchbucket", "specified bucket does not exist")
	default:
		return false
	}
}
