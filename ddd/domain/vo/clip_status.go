package vo

import "fmt"

// ClipStatus 剪辑生命周期状态
type ClipStatus string

const (
	ClipStatusPending     ClipStatus = "pending"     // 已创建，尚未提交转码
	ClipStatusTranscoding ClipStatus = "transcoding" // 已提交或正在转码
	ClipStatusReady       ClipStatus = "ready"       // 可播放
	ClipStatusFailed      ClipStatus = "failed"      // 转码失败
	ClipStatusExpired     ClipStatus = "expired"     // 已过期，产物已回收
)

// String 返回状态字符串
func (s ClipStatus) String() string {
	return string(s)
}

// IsValid 检查状态是否有效
func (s ClipStatus) IsValid() bool {
	switch s {
	case ClipStatusPending, ClipStatusTranscoding, ClipStatusReady, ClipStatusFailed, ClipStatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to target is a legal lifecycle step.
// expired -> ready is only used when the owner extends the ttl.
func (s ClipStatus) CanTransitionTo(target ClipStatus) bool {
	switch s {
	case ClipStatusPending:
		return target == ClipStatusTranscoding || target == ClipStatusFailed
	case ClipStatusTranscoding:
		return target == ClipStatusReady || target == ClipStatusFailed || target == ClipStatusExpired
	case ClipStatusReady:
		return target == ClipStatusExpired
	case ClipStatusFailed:
		return target == ClipStatusExpired
	case ClipStatusExpired:
		return target == ClipStatusReady
	default:
		return false
	}
}

// NewClipStatusFromString 从字符串解析状态
func NewClipStatusFromString(s string) (ClipStatus, error) {
	status := ClipStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid clip status: %s", s)
	}
	return status, nil
}
