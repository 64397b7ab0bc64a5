package errors

import (
	"errors"
	"fmt"
)

// 错误码
const (
	CodeSuccess        = 200
	CodeBadRequest     = 400
	CodeUnauthorized   = 401
	CodeNotFound       = 404
	CodeConflict       = 409
	CodeInternalError  = 500
	CodeDatabaseError  = 501
	CodeValidation     = 503
	CodeAuthentication = 511 // 源库或目标平台认证失败
	CodeUnreachable    = 512 // 网络不可达
	CodeDuplicateJob   = 513 // 同一迁移已有排队/运行中的任务
	CodeProcess        = 514 // 外部进程异常退出
	CodeResumability   = 515 // 工作目录缺失或损坏, 无法断点续传
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"` // 附加信息, 如进程输出尾部
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf 提取错误码, 非AppError返回CodeInternalError
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// IsCode 判断错误链中是否存在指定错误码
func IsCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// NewAuthenticationError 认证失败错误
func NewAuthenticationError(message string, err error) *AppError {
	return Wrap(CodeAuthentication, message, err)
}

// NewUnreachableError 不可达错误
func NewUnreachableError(message string, err error) *AppError {
	return Wrap(CodeUnreachable, message, err)
}

// NewNotFoundError 资源不存在错误
func NewNotFoundError(message string) *AppError {
	return New(CodeNotFound, message)
}

// NewDuplicateJobError 重复任务错误
func NewDuplicateJobError(recordID string) *AppError {
	return New(CodeDuplicateJob, fmt.Sprintf("迁移 %s 已有排队或运行中的任务", recordID))
}

// NewProcessError 进程错误, tail 为捕获的输出尾部
func NewProcessError(message, tail string, err error) *AppError {
	return &AppError{
		Code:    CodeProcess,
		Message: message,
		Detail:  tail,
		Err:     err,
	}
}

// NewResumabilityError 断点续传不可用错误
func NewResumabilityError(message string) *AppError {
	return New(CodeResumability, message)
}

// NewValidationError 输入校验错误
func NewValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// 预定义错误
var (
	ErrBadRequest     = New(CodeBadRequest, "请求参数错误")
	ErrNotFound       = New(CodeNotFound, "资源不存在")
	ErrInternalError  = New(CodeInternalError, "内部服务器错误")
	ErrDatabaseError  = New(CodeDatabaseError, "数据库错误")
	ErrRecordNotFound = New(CodeNotFound, "迁移记录不存在")
)
