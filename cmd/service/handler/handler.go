package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/quka-ai/daybook/app/core"
	v1 "github.com/quka-ai/daybook/app/logic/v1"
)

// HttpSrv HTTP服务结构
type HttpSrv struct {
	Core       *core.Core
	Engine     *gin.Engine
	Recordings *v1.RecordingRegistry
}

func NewHttpSrv(core *core.Core) *HttpSrv {
	recordings := v1.NewRecordingRegistry(core.Cfg().Media.TimeSlice())
	recordings.OnStart = core.Metrics().RecordingStarted
	recordings.OnStop = core.Metrics().RecordingStopped
	return &HttpSrv{
		Core:       core,
		Engine:     core.HttpEngine(),
		Recordings: recordings,
	}
}
