package ask

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/concierge/internal/model/contract"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket 在一个连接上按顺序处理问答帧，每个请求帧对应一个回复帧。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	remote := r.RemoteAddr
	log.Printf("[ws] connection opened remote=%s", remote)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed remote=%s: %v", remote, err)
			}
			return
		}

		reply := h.answerFrame(r, data, remote)
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("[ws] write failed remote=%s: %v", remote, err)
			return
		}
	}
}

func (h *Handler) answerFrame(r *http.Request, data []byte, remote string) any {
	var req contract.AskRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return contract.ErrorResponse{Error: "invalid request frame"}
	}
	if strings.TrimSpace(req.Query) == "" {
		return contract.ErrorResponse{Error: "query is required"}
	}

	resp, err := h.answerer.Answer(r.Context(), req, remote)
	if err != nil {
		_, msg := errorStatus(err)
		log.Printf("[ws] answer failed session=%s: %v", req.SessionID, err)
		return contract.ErrorResponse{Error: msg}
	}
	return resp
}
