package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

// MaxBodyBytes 限制请求体大小，对话记录通常远小于该值
const MaxBodyBytes = 1 << 20

var ErrBadRequestBody = errors.New("invalid request body")

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送 {"error": message} 错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: message})
}

// DecodeJSON 解析请求体到 dst，超出 MaxBodyBytes 或格式错误时返回 ErrBadRequestBody
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequestBody, err)
	}
	return nil
}
