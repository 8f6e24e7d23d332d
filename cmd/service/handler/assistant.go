package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/daybook/app/logic/v1"
	"github.com/quka-ai/daybook/app/response"
	"github.com/quka-ai/daybook/pkg/types"
	"github.com/quka-ai/daybook/pkg/utils"
)

type AssistantResponse struct {
	Content string `json:"content"`
}

func (s *HttpSrv) GetDailyPrompt(c *gin.Context) {
	prompt, err := v1.NewAssistantLogic(c, s.Core).DailyPrompt()
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, AssistantResponse{Content: prompt})
}

type ReflectRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *HttpSrv) Reflect(c *gin.Context) {
	var (
		err error
		req ReflectRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	reflection, err := v1.NewAssistantLogic(c, s.Core).Reflect(req.Content)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, AssistantResponse{Content: reflection})
}

type ChatRequest struct {
	History []types.MessageContext `json:"history"`
	Message string                 `json:"message" binding:"required"`
}

func (s *HttpSrv) Chat(c *gin.Context) {
	var (
		err error
		req ChatRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	reply, err := v1.NewAssistantLogic(c, s.Core).Chat(req.History, req.Message)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, AssistantResponse{Content: reply})
}
