package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultPath  = "configs/config.dev.yaml"
	FallbackPath = "configs/config.example.yaml"
)

// ResolvePath explicit（通常来自 CONFIG_PATH）优先，其次 dev，最后 example；
// 返回绝对路径以及是否发生了回退
func ResolvePath(explicit string) (string, bool, error) {
	want := explicit
	if want == "" {
		want = DefaultPath
	}
	path, fellBack := want, false
	if _, err := os.Stat(want); err != nil {
		if _, err2 := os.Stat(FallbackPath); err2 != nil {
			return "", false, fmt.Errorf("config file not found: %s (fallback %s also missing)", want, FallbackPath)
		}
		path, fellBack = FallbackPath, true
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, fellBack, nil
}
