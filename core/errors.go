package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）、模块（Module）和消息（Message）
//   - 涉及具体行为 / 样本时携带下标（Index），否则为 -1
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 配置错误：INVALID_CONFIG（负采样数为负、非法 dev/test 模式）
//   - 负采样错误：EMPTY_CANDIDATE_POOL（训练行为没有候选负样本）
//   - 取样错误：INDEX_OUT_OF_RANGE
//   - 语料 / 行为行错误：INVALID_INPUT
//   - 存储错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_CONFIG", "EMPTY_CANDIDATE_POOL"）
	Message string // 错误消息
	Module  string // 模块名称（如 "dataset", "sampler", "store"）
	Index   int    // 相关的行为 / 样本下标，无则为 -1
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Index:   -1,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound           = "NOT_FOUND"            // 资源不存在
	ErrorCodeInvalidInput       = "INVALID_INPUT"        // 输入无效
	ErrorCodeInvalidConfig      = "INVALID_CONFIG"       // 配置无效，构造阶段即失败
	ErrorCodeEmptyCandidatePool = "EMPTY_CANDIDATE_POOL" // 训练行为候选负样本为空
	ErrorCodeIndexOutOfRange    = "INDEX_OUT_OF_RANGE"   // 取样下标越界
)

// 模块名称常量
const (
	ModuleCorpus  = "corpus"  // 语料模块
	ModuleDataset = "dataset" // 样本视图模块
	ModuleSampler = "sampler" // 负采样模块
	ModuleStore   = "store"   // 存储模块
	ModuleConfig  = "config"  // 配置模块
)

// NewInvalidConfigError 创建配置错误。
func NewInvalidConfigError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidConfig, fmt.Sprintf(format, args...))
}

// NewInvalidInputError 创建输入错误，index 为出错的行 / 记录下标（无则传 -1）。
func NewInvalidInputError(module string, index int, format string, args ...any) *DomainError {
	e := NewDomainError(module, ErrorCodeInvalidInput, fmt.Sprintf(format, args...))
	e.Index = index
	return e
}

// NewEmptyCandidatePoolError 创建空候选池错误，index 为训练行为下标。
func NewEmptyCandidatePoolError(index int) *DomainError {
	e := NewDomainError(ModuleSampler, ErrorCodeEmptyCandidatePool,
		fmt.Sprintf("sampler: train behavior %d has an empty candidate pool", index))
	e.Index = index
	return e
}

// NewIndexOutOfRangeError 创建下标越界错误。
func NewIndexOutOfRangeError(module string, index, length int) *DomainError {
	e := NewDomainError(module, ErrorCodeIndexOutOfRange,
		fmt.Sprintf("%s: index %d out of range [0, %d)", module, index, length))
	e.Index = index
	return e
}

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsInvalidConfig 检查错误是否为 INVALID_CONFIG
func IsInvalidConfig(err error) bool {
	return hasCode(err, ErrorCodeInvalidConfig)
}

// IsEmptyCandidatePool 检查错误是否为 EMPTY_CANDIDATE_POOL
func IsEmptyCandidatePool(err error) bool {
	return hasCode(err, ErrorCodeEmptyCandidatePool)
}

// IsIndexOutOfRange 检查错误是否为 INDEX_OUT_OF_RANGE
func IsIndexOutOfRange(err error) bool {
	return hasCode(err, ErrorCodeIndexOutOfRange)
}
