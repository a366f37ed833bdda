package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code Code
		want int
	}{
		{"输入无效", CodeInvalidInput, http.StatusBadRequest},
		{"无工作日", CodeNoWorkingDays, http.StatusBadRequest},
		{"不存在", CodeNotFound, http.StatusNotFound},
		{"限流", CodeRateLimited, http.StatusTooManyRequests},
		{"拆分超限", CodeSegmentLimit, http.StatusUnprocessableEntity},
		{"持久化未启用", CodePersistenceDisabled, http.StatusServiceUnavailable},
		{"数据库错误", CodeDatabaseError, http.StatusInternalServerError},
		{"未知", CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("连接断开")
	err := Wrap(cause, CodeDatabaseError, "写入失败")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "DATABASE_ERROR")
	assert.Contains(t, err.Error(), "连接断开")
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
}

func TestIsAndGetCodeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("repository: %w", NotFound("job", "j1"))

	assert.True(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(wrapped, CodeDatabaseError))
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))

	plain := fmt.Errorf("plain")
	assert.Equal(t, CodeUnknown, GetCode(plain))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(plain))
}

func TestSegmentLimitFields(t *testing.T) {
	err := SegmentLimit(2, 120)

	assert.Equal(t, CodeSegmentLimit, err.Code)
	assert.Equal(t, 2, err.Fields["max_segments"])
	assert.Equal(t, 120, err.Fields["remaining_minutes"])
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	assert.False(t, ve.HasErrors())
	assert.Equal(t, "验证失败", ve.Error())

	ve.Add("date", "必填")
	ve.Add("jobs", "不能为空")
	require.True(t, ve.HasErrors())
	assert.Contains(t, ve.Error(), "date")

	appErr := ve.ToAppError()
	assert.Equal(t, CodeValidationFail, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Equal(t, "必填", appErr.Fields["date"])
	assert.Equal(t, "不能为空", appErr.Fields["jobs"])
}
