// Package handler 提供API处理器
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/logger"
)

// maxBodyBytes 请求体大小上限
const maxBodyBytes = 4 << 20

// APIResponse 统一响应结构
type APIResponse struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Error   *apperrors.AppError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("写入响应失败")
	}
}

func sendData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendError 输出错误，非 AppError 统一视为内部错误
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	sendErrorWithData(w, r, err, nil)
}

func sendErrorWithData(w http.ResponseWriter, r *http.Request, err error, data interface{}) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.New(apperrors.CodeInternal, "internal error")
	}
	status := apperrors.GetHTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).
			Str("code", string(apperrors.GetCode(err))).
			Str("path", r.URL.Path).
			Msg("请求处理失败")
	}
	writeJSON(w, status, APIResponse{Success: false, Data: data, Error: appErr})
}

// decode 解析请求体
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, r, apperrors.New(apperrors.CodeInvalidInput, "invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}
