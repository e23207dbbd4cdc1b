package protocol

import (
	"strings"

	"github.com/fansqz/js-debugger/constants"
	e "github.com/fansqz/js-debugger/error"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ExtensionResponse 调试扩展发来的消息，可能是请求的响应，也可能是事件
type ExtensionResponse struct {
	Id      int
	Target  string
	Method  string
	Request gjson.Result
	Result  gjson.Result
	Error   string
}

// ParseExtensionResponse 解析调试扩展发来的消息，消息不是json对象时返回ErrBadMessage
func ParseExtensionResponse(data []byte) (*ExtensionResponse, error) {
	if !gjson.ValidBytes(data) {
		return nil, e.ErrBadMessage
	}
	message := gjson.ParseBytes(data)
	if !message.IsObject() {
		return nil, e.ErrBadMessage
	}
	fields := message.Map()
	return &ExtensionResponse{
		Id:      int(fields["id"].Int()),
		Target:  fields["target"].String(),
		Method:  fields["method"].String(),
		Request: fields["request"],
		Result:  fields["result"],
		Error:   fields["error"].String(),
	}, nil
}

func (r *ExtensionResponse) IsError() bool {
	return r.Error != ""
}

// IsDomMessage DOM相关的消息直接透传
func (r *ExtensionResponse) IsDomMessage() bool {
	return strings.HasPrefix(r.Method, constants.DomMethodPrefix)
}

// CustomMessage 通过SendCustomMessage发送的原始消息
type CustomMessage struct {
	Id     int
	Method string
	Params string
}

// ParseCustomMessage 消息不是json对象时返回ErrBadMessage
func ParseCustomMessage(message string) (*CustomMessage, error) {
	if !gjson.Valid(message) {
		return nil, e.ErrBadMessage
	}
	parsed := gjson.Parse(message)
	if !parsed.IsObject() {
		return nil, e.ErrBadMessage
	}
	answer := &CustomMessage{
		Id:     int(parsed.Get("id").Int()),
		Method: parsed.Get("method").String(),
	}
	if p := parsed.Get("params"); p.IsObject() {
		answer.Params = p.Raw
	}
	return answer, nil
}

// NewCustomMessageResponse 自定义消息的响应 {"id", "result", "error"}，id为调用者消息中的id
func NewCustomMessageResponse(id int, response *ExtensionResponse) string {
	answer, _ := sjson.Set("{}", "id", id)
	return withResultAndError(answer, "result", response)
}

// NewDomMessage DOM消息 {"method", "params", "error"}
func NewDomMessage(response *ExtensionResponse) string {
	answer, _ := sjson.Set("{}", "method", response.Method)
	return withResultAndError(answer, "params", response)
}

func withResultAndError(answer string, resultKey string, response *ExtensionResponse) string {
	if response.Result.Exists() {
		answer, _ = sjson.SetRaw(answer, resultKey, response.Result.Raw)
	}
	if response.IsError() {
		answer, _ = sjson.Set(answer, "error", response.Error)
	}
	return answer
}
