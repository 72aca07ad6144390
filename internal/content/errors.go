package content

import (
	"errors"
	"fmt"
	"postcraft-go/internal/model"
)

// ErrGenerationFailed 表示补全 API 不可用或返回了错误。
var ErrGenerationFailed = errors.New("generation failed")

// GenerationError 携带失败时的平台与模型信息。
type GenerationError struct {
	Platform model.Platform
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (platform=%s, model=%s): %v", e.Platform, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrGenerationFailed) 对所有 GenerationError 成立。
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}
