package database

import (
	"errors"
	"strings"
)

// 校验类错误，客户端修正后可以重试
var (
	ErrInvalidHandle   = errors.New("username must be 3-20 characters")
	ErrInvalidPassword = errors.New("password must be at least 4 characters")
	ErrInvalidName     = errors.New("channel name must be 2-50 characters")
	ErrInvalidPair     = errors.New("invalid request")
)

// 授权类错误，换 actor 或凭证才可能成功
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrBanned             = errors.New("you are banned from this channel")
	ErrMembershipRequired = errors.New("private channel - invite required")
)

// 冲突/缺失类错误
var (
	ErrDuplicateHandle = errors.New("user already exists")
	ErrNameTaken       = errors.New("channel exists")
	ErrUnknownUser     = errors.New("user not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotPrivate      = errors.New("channel is public")
	ErrNotFound        = errors.New("not found")
)

// isDupErr reports whether err is a unique-constraint violation.
// 唯一约束是并发写入的最终防线，应用层检查只是优化
func isDupErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "Error 1062")
}
