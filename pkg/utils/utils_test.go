package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenUniqIDStr(t *testing.T) {
	SetupIDWorker(1)

	a, b := GenUniqIDStr(), GenUniqIDStr()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestRandomStr(t *testing.T) {
	assert.Len(t, GenRandomID(), 32)
	assert.NotEqual(t, GenRandomID(), GenRandomID())
	assert.Len(t, RandomStr(8), 8)
	assert.Equal(t, 3, Random(3, 3))
	for i := 0; i < 100; i++ {
		n := Random(0, 2)
		assert.True(t, n >= 0 && n <= 2)
	}
}

func Test_ParseAcceptLanguage(t *testing.T) {
	res := ParseAcceptLanguage("en;q=0.7,zh-CN,en-US;q=0.8")

	assert.Equal(t, []Language{
		{Tag: "zh-CN", Weight: 1},
		{Tag: "en-US", Weight: 0.8},
		{Tag: "en", Weight: 0.7},
	}, res)
	assert.Empty(t, ParseAcceptLanguage(""))
	assert.Empty(t, ParseAcceptLanguage("en;q=abc"))
}

func TestCleanContentType(t *testing.T) {
	assert.Equal(t, "audio/webm", CleanContentType("audio/webm;codecs=opus"))
	assert.Equal(t, "video/mp4", CleanContentType(" Video/MP4 "))
	assert.Equal(t, "", CleanContentType(""))
}
