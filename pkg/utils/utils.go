package utils

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/holdno/snowFlakeByGo"
	"golang.org/x/text/language"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
)

var idWorker *snowFlakeByGo.Worker

// SetupIDWorker 必须在生成条目 id 之前调用
func SetupIDWorker(clusterID int64) {
	worker, err := snowFlakeByGo.NewWorker(clusterID)
	if err != nil {
		panic(fmt.Errorf("failed to setup id worker: %w", err))
	}
	idWorker = worker
}

func GenUniqID() int64 {
	return idWorker.GetId()
}

func GenUniqIDStr() string {
	return strconv.FormatInt(GenUniqID(), 10)
}

// GenRandomID 32 位十六进制随机串，用于 request id 与录制会话 id
func GenRandomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

const randomSeed = "1234567890qwertyuiopasdfghjklzxcvbnmQWERTYUIOPASDFGHJKLZXCVBNM"

func RandomStr(l int) string {
	var sb strings.Builder
	sb.Grow(l)
	for i := 0; i < l; i++ {
		sb.WriteByte(randomSeed[rand.Intn(len(randomSeed))])
	}
	return sb.String()
}

// Random 返回 [min, max] 区间内的随机数
func Random(min, max int) int {
	if min >= max {
		return min
	}
	return min + rand.Intn(max-min+1)
}

func BindArgsWithGin(c *gin.Context, req interface{}) error {
	err := c.ShouldBindWith(req, binding.Default(c.Request.Method, c.ContentType()))
	if err != nil {
		return errors.New(fmt.Sprintf("Gin.ShouldBindWith.%s.%s", c.Request.Method, c.Request.URL.Path), i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	return nil
}

type Language struct {
	Tag    string
	Weight float32
}

// ParseAcceptLanguage 按权重从高到低返回，格式错误时返回空
func ParseAcceptLanguage(header string) []Language {
	tags, weights, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return []Language{}
	}

	languages := make([]Language, 0, len(tags))
	for i, tag := range tags {
		languages = append(languages, Language{Tag: tag.String(), Weight: weights[i]})
	}
	return languages
}

// CleanContentType 去除 Content-Type 的参数部分，如 "audio/webm;codecs=opus" -> "audio/webm"
func CleanContentType(contentType string) string {
	mainType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mainType))
}
