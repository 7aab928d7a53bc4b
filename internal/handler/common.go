package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opendce/backend/internal/service"
	"k8s.io/klog/v2"
)

var (
	errFileMissing  = errors.New("missing multipart field \"file\"")
	errFileTooLarge = errors.New("uploaded file exceeds size limit")
)

// statusFor 服务层错误对应的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrProcedureNotFound),
		errors.Is(err, service.ErrSectionDocNotFound),
		errors.Is(err, service.ErrRowNotFound),
		errors.Is(err, service.ErrColumnNotFound),
		errors.Is(err, service.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, service.ErrProcedureExists),
		errors.Is(err, service.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrParseFailed),
		errors.Is(err, service.ErrEmptyWorkbook),
		errors.Is(err, service.ErrNoColumnsMatched):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidFileType),
		errors.Is(err, service.ErrInvalidProcedure),
		errors.Is(err, service.ErrInvalidLot),
		errors.Is(err, service.ErrInvalidTargetLots),
		errors.Is(err, service.ErrUnknownSectionType),
		errors.Is(err, service.ErrUnknownDocType),
		errors.Is(err, service.ErrInvalidLevel),
		errors.Is(err, service.ErrInvalidPosition),
		errors.Is(err, service.ErrInvalidGrid),
		errors.Is(err, service.ErrLastColumn),
		errors.Is(err, service.ErrColumnExists),
		errors.Is(err, service.ErrCalculatedColumn),
		errors.Is(err, service.ErrInvalidColumn),
		errors.Is(err, service.ErrUnknownEdit),
		errors.Is(err, errFileMissing):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// respondError 写出错误响应，服务端错误记录日志
func respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		klog.Errorf("%s: failed: %v", op, err)
	} else {
		klog.V(6).Infof("%s: rejected: %v", op, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseID 解析正整数路径参数
func parseID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// parseInt 解析整数路径参数
func parseInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// readUpload 读取 multipart 的 file 字段，超过 maxBytes 时拒绝
func readUpload(c *gin.Context, maxBytes int64) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, errFileTooLarge
		}
		return "", nil, fmt.Errorf("%w: %v", errFileMissing, err)
	}
	if fh.Size > maxBytes {
		return "", nil, fmt.Errorf("%w: %d bytes", errFileTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", nil, errFileTooLarge
	}
	return fh.Filename, data, nil
}

// sendFile 以附件形式返回导出文件
func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
