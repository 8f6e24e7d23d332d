package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	v1 "github.com/quka-ai/daybook/app/logic/v1"
	"github.com/quka-ai/daybook/app/response"
	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/types"
)

type UploadMediaResponse struct {
	URL string `json:"url"`
}

func (s *HttpSrv) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.APIError(c, errors.New("api.UploadMedia.FormFile", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest).Kind(errors.ErrInvalid))
		return
	}

	url, err := v1.NewMediaLogic(c, s.Core).UploadFile(types.EntryType(c.Param("kind")), file)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, UploadMediaResponse{URL: url})
}

const (
	RECORD_STOP_COMMAND = "stop"
	recordWriteTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RecordMedia 客户端以二进制帧推送录制分片，发送文本帧 stop 后服务端合并上传并返回 {url,size}
func (s *HttpSrv) RecordMedia(c *gin.Context) {
	logic := v1.NewRecordLogic(c, s.Core, s.Recordings)
	sess, err := logic.StartRecording(types.EntryType(c.Param("kind")), c.Query("mime_type"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sess.Abort()
		slog.Error("Websocket Upgrade err", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(s.Core.Cfg().Media.MaxUploadBytes())

	closeWith := func(code int, text string) {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(recordWriteTimeout))
	}

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			// 连接断开视为放弃本次录制
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("recording connection closed", slog.String("session", sess.ID), slog.String("error", err.Error()))
			}
			sess.Abort()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err = sess.Push(c, data); err != nil {
				sess.Abort()
				closeWith(websocket.CloseMessageTooBig, err.Error())
				return
			}
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) != RECORD_STOP_COMMAND {
				continue
			}

			result, err := logic.FinishRecording(sess)
			if err != nil {
				slog.Error("failed to finish recording", slog.String("session", sess.ID), slog.String("error", err.Error()))
				closeWith(websocket.CloseInternalServerErr, "failed to save recording")
				return
			}

			_ = ws.SetWriteDeadline(time.Now().Add(recordWriteTimeout))
			if err = ws.WriteJSON(result); err != nil {
				slog.Error("failed to reply recording result", slog.String("session", sess.ID), slog.String("error", err.Error()))
				return
			}
			closeWith(websocket.CloseNormalClosure, "")
			return
		}
	}
}
