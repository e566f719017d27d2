package errcode

import (
	"errors"
	"fmt"
	"strings"
)

// 错误码约定：
// - 0：无错误
// - 4xxx：输入或资源问题（名单格式错误、模板无法解析、字体缺失降级）
// - 5xxx：系统错误（写文件失败等，需要中断流程）
const (
	OK              = 0
	DataFormat      = 4001
	Render          = 4002
	ResourceMissing = 4004
	SystemError     = 5000
)

// DataFormatError 表示名单无法解析或缺少必需列，整次生成直接失败。
type DataFormatError struct {
	Msg     string
	Missing []string
	Err     error
}

func (e *DataFormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required columns: [%s]", strings.Join(e.Missing, " "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// RenderError 表示模板图片无法加载。字体加载失败不属于此类，会降级为内置字体。
type RenderError struct {
	Msg string
	Err error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RenderError) Unwrap() error { return e.Err }

// IOError 表示写入证书图片或压缩包失败。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Code 把错误映射为错误码，未知错误按系统错误处理。
func Code(err error) int {
	if err == nil {
		return OK
	}
	var dataErr *DataFormatError
	if errors.As(err, &dataErr) {
		return DataFormat
	}
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return Render
	}
	return SystemError
}

// IsInputError 判断错误是否由调用方输入引起（重试无意义）。
func IsInputError(err error) bool {
	code := Code(err)
	return code >= 4000 && code < 5000
}
