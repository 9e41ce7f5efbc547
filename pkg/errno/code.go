package errno

import (
	"errors"
	"net/http"
)

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Authentication required"}
	ErrForbidden    = &Errno{Code: 403, Message: "Forbidden"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}
	ErrTooMany      = &Errno{Code: 429, Message: "Too many requests"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUpstream       = &Errno{Code: 502, Message: "Failed to resolve media from Plex"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 剪辑业务错误码
	ErrClipNotFound     = &Errno{Code: 20001, Message: "Clip not found"}
	ErrClipDuration     = &Errno{Code: 20002, Message: "Clip duration is out of range"}
	ErrRatingKeyMissing = &Errno{Code: 20003, Message: "ratingKey is required"}
	ErrClipRange        = &Errno{Code: 20004, Message: "startMs and endMs must be non-negative"}
	ErrClipNotReady     = &Errno{Code: 20005, Message: "Clip is not ready"}
	ErrClipGone         = &Errno{Code: 20006, Message: "Clip has expired"}
	ErrViewLimit        = &Errno{Code: 20007, Message: "View limit reached"}
	ErrTokenInvalid     = &Errno{Code: 20008, Message: "Invalid or expired token"}
	ErrSettingInvalid   = &Errno{Code: 20009, Message: "Invalid setting value"}
	ErrTTLInvalid       = &Errno{Code: 20010, Message: "ttlHours must be positive"}
	ErrMaxViewsInvalid  = &Errno{Code: 20011, Message: "maxViews must be positive"}

	// 认证相关错误码
	ErrSessionInvalid = &Errno{Code: 20101, Message: "Invalid or expired session"}
	ErrAdminRequired  = &Errno{Code: 20102, Message: "Admin access required"}
	ErrPinRequired    = &Errno{Code: 20103, Message: "pinId required"}
	ErrPlexAuth       = &Errno{Code: 20104, Message: "Failed to validate with Plex"}
	ErrUserNotFound   = &Errno{Code: 20105, Message: "User not found"}
)

var statusByCode = map[int]int{
	ErrClipNotFound.Code:     http.StatusNotFound,
	ErrClipDuration.Code:     http.StatusBadRequest,
	ErrRatingKeyMissing.Code: http.StatusBadRequest,
	ErrClipRange.Code:        http.StatusBadRequest,
	ErrClipNotReady.Code:     http.StatusConflict,
	ErrClipGone.Code:         http.StatusGone,
	ErrViewLimit.Code:        http.StatusForbidden,
	ErrTokenInvalid.Code:     http.StatusUnauthorized,
	ErrSettingInvalid.Code:   http.StatusBadRequest,
	ErrTTLInvalid.Code:       http.StatusBadRequest,
	ErrMaxViewsInvalid.Code:  http.StatusBadRequest,
	ErrSessionInvalid.Code:   http.StatusUnauthorized,
	ErrAdminRequired.Code:    http.StatusForbidden,
	ErrPinRequired.Code:      http.StatusBadRequest,
	ErrPlexAuth.Code:         http.StatusBadGateway,
	ErrUserNotFound.Code:     http.StatusNotFound,
	ErrDatabase.Code:         http.StatusInternalServerError,
	ErrUnknown.Code:          http.StatusInternalServerError,
}

// HTTPStatus maps an error to the HTTP status it should be rendered with.
func HTTPStatus(err error) int {
	var e *Errno
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	if e.Code >= 400 && e.Code < 600 {
		return e.Code
	}
	return http.StatusInternalServerError
}
