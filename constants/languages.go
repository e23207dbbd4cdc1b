package constants

import (
	"path"
	"strings"
)

type LanguageType string

const (
	LanguageJavaScript LanguageType = "javascript"
	LanguageHTML       LanguageType = "html"
)

// 可以设置断点的文件后缀
var debuggableExtensions = map[string]LanguageType{
	".js":   LanguageJavaScript,
	".htm":  LanguageHTML,
	".html": LanguageHTML,
}

// GetLanguage 根据文件名获取语言类型
func GetLanguage(filePath string) (LanguageType, bool) {
	ext := strings.ToLower(path.Ext(path.Base(filePath)))
	language, ok := debuggableExtensions[ext]
	return language, ok
}

// IsDebuggableFile 文件是否可以设置断点
func IsDebuggableFile(filePath string) bool {
	_, ok := GetLanguage(filePath)
	return ok
}
