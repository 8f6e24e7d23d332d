package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// projectEnvFile 位于仓库根目录，不存在时忽略
func projectEnvFile() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", ".env")
}

// LoadEnv 只加载一次，已存在的环境变量不会被覆盖
func LoadEnv() {
	loadOnce.Do(func() {
		path := projectEnvFile()
		if _, err := os.Stat(path); err != nil {
			return
		}
		if err := godotenv.Load(path); err != nil {
			panic("testutils: failed to load " + path + ": " + err.Error())
		}
	})
}

// RequireEnv 加载 .env 后读取集成测试需要的环境变量，缺少任意一个时跳过当前测试
func RequireEnv(t testing.TB, keys ...string) map[string]string {
	t.Helper()
	LoadEnv()

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			t.Skipf("%s is not set, skip integration test", key)
		}
		values[key] = v
	}
	return values
}
