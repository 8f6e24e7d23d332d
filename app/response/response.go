package response

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/utils"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("i18n", l)
	}
}

func InjectResponseLocalizer(c *gin.Context) i18n.Localizer {
	return c.MustGet("i18n").(i18n.Localizer)
}

// 常量定义
const (
	RequestIDKey = "request_id"
	ResponseKey  = "response_key"
	UserIDKey    = "__daybook.user_id"
	StartTimeKey = "__daybook.start_time"
)

// EmptyStruct 空结构体
type EmptyStruct struct {
}

// Response 响应结构体定义
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data"`
}

// Meta 响应meta定义
type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// ListResponse 分页列表
type ListResponse[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
}

func GetLangFromRequestOrDefault(c *gin.Context) string {
	lang := c.Request.Header.Get("Accept-Language")
	if lang == "zh" {
		lang = "zh-CN"
	}
	if i18n.ALLOW_LANG[lang] {
		return lang
	}
	return i18n.DEFAULT_LANG
}

// APIError api响应失败
func APIError(c *gin.Context, err error) {
	c.Abort()
	l := InjectResponseLocalizer(c)

	res := c.MustGet(ResponseKey).(*Response)
	var (
		httpStatus int
		cerrptr    *errors.CustomizedError
	)
	if !errors.As(err, &cerrptr) {
		res.Meta.Code = http.StatusInternalServerError
		res.Meta.Message = err.Error()
		httpStatus = res.Meta.Code
	} else {
		res.Meta.Code = cerrptr.GetCode()
		res.Meta.Message = l.Get(GetLangFromRequestOrDefault(c), cerrptr.Message())
		httpStatus = cerrptr.GetCode()
		if httpStatus == 0 {
			httpStatus = http.StatusInternalServerError
			res.Meta.Code = httpStatus
		}
	}

	c.JSON(httpStatus, res)
	printErrorLog(c, res, err)
}

// requestAttrs 不记录请求体，日记内容属于隐私数据
func requestAttrs(c *gin.Context, res *Response) []any {
	attrs := []any{
		slog.String("request_id", res.Meta.RequestID),
		slog.String("method", c.Request.Method),
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("query", c.Request.URL.Query().Encode()),
		slog.Int("code", res.Meta.Code),
		slog.String("platform", c.Request.Header.Get("Platform")),
		slog.String("version", c.Request.Header.Get("Version")),
	}
	if st := c.GetTime(StartTimeKey); !st.IsZero() {
		attrs = append(attrs, slog.Duration("cost", time.Since(st)))
	}
	if uid := c.GetString(UserIDKey); uid != "" {
		attrs = append(attrs, slog.String("uid", uid))
	}
	return attrs
}

func printErrorLog(c *gin.Context, res *Response, err error) {
	attrs := append(requestAttrs(c, res), slog.String("error", err.Error()))
	if res.Meta.Code >= http.StatusInternalServerError {
		slog.Error("response error", attrs...)
		return
	}
	slog.Warn("response error", attrs...)
}

func printSuccessLog(c *gin.Context, res *Response) {
	slog.Info("request success", requestAttrs(c, res)...)
}

// APISuccess api响应成功
func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	res := c.MustGet(ResponseKey).(*Response)
	if response != nil {
		res.Data = response
	}
	res.Meta.Code = http.StatusOK
	c.JSON(http.StatusOK, res)
	printSuccessLog(c, res)
}

// NewResponse 为每个请求准备响应信封并生成 request id
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(StartTimeKey, time.Now())
		resp := &Response{
			Meta: Meta{
				RequestID: utils.GenRandomID(),
			},
		}
		c.Set(ResponseKey, resp)
	}
}
