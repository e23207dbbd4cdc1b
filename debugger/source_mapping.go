package debugger

import (
	"regexp"
	"strings"
)

// StaticSourceMapping
// 本地文件与远程资源一一对应，远程资源的地址为 baseUri + 本地路径
type StaticSourceMapping struct {
	resourceBaseUri string
}

func NewStaticSourceMapping(baseUri string) *StaticSourceMapping {
	return &StaticSourceMapping{
		resourceBaseUri: strings.ToLower(strings.TrimRight(baseUri, "/")),
	}
}

func (s *StaticSourceMapping) GetLocalScriptPath(response *OnScriptParsed) string {
	if response == nil {
		return ""
	}
	return s.GetLocalSourcePath(response.Url)
}

func (s *StaticSourceMapping) GetLocalSourceLineNumber(response *OnScriptParsed, location *Location) int {
	if location == nil {
		return -1
	}
	return location.LineNumber
}

// GetRemoteBreakpoint 使用urlRegex匹配带有query或者fragment的资源地址
func (s *StaticSourceMapping) GetRemoteBreakpoint(breakpoint Breakpoint) *BreakpointInfo {
	url := s.GetRemoteSourceUri(breakpoint.Path)
	return &BreakpointInfo{
		UrlRegex:     "^" + regexp.QuoteMeta(url) + "([?#].*)?$",
		LineNumber:   breakpoint.LineNumber,
		ColumnNumber: 0,
		Condition:    breakpoint.Condition,
	}
}

func (s *StaticSourceMapping) GetLocalSourcePath(resourceUri string) string {
	if resourceUri == "" || !strings.HasPrefix(strings.ToLower(resourceUri), s.resourceBaseUri) {
		return ""
	}
	relativePath := resourceUri[len(s.resourceBaseUri):]
	if pos := strings.IndexByte(relativePath, '?'); pos != -1 {
		relativePath = relativePath[:pos]
	}
	if pos := strings.IndexByte(relativePath, '#'); pos != -1 {
		relativePath = relativePath[:pos]
	}
	return relativePath
}

func (s *StaticSourceMapping) GetRemoteSourceUri(path string) string {
	return s.resourceBaseUri + path
}
