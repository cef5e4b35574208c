package service

// ValidationError 请求内容不合法（未知告警ID、非法动作等），整批拒绝
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError 当前状态不允许该操作（如存在未确认CRITICAL告警时定版）
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
