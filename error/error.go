package error

import "errors"

var (
	ErrDebuggerInactive          = errors.New("debugger is not active")
	ErrBreakpointNotFound        = errors.New("breakpoint to remove not found")
	ErrEmptyBreakpointID         = errors.New("empty breakpointId in the response")
	ErrReactivation              = errors.New("reactivation of debugger is not supported")
	ErrNodeNotFound              = errors.New("remote object node not found")
	ErrLeafNode                  = errors.New("node can not have children")
	ErrReadOnlyNode              = errors.New("property can not be modified")
	ErrTransportClosed           = errors.New("debugger transport is closed")
	ErrBadMessage                = errors.New("malformed debugger message")
	ErrUnknownVariablesReference = errors.New("unknown variables reference")
	ErrLanguageNotSupported      = errors.New("this file type is not supported")
	ErrPositionOutOfRange        = errors.New("document position out of range")
	ErrNotPaused                 = errors.New("debugger is not paused")
	ErrDebuggerUnavailable       = errors.New("debugging extension is not available")
	ErrNotLaunched               = errors.New("launch requires a url or a program")
	ErrCallFrameNotFound         = errors.New("call frame not found")
	ErrCallFrameChanged          = errors.New("call frame changed before the evaluation finished")
)
