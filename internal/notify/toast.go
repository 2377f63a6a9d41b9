// Package notify builds user-facing toasts and routes panel notifications
// to the users a change concerns.
package notify

import "fmt"

type Kind string

const (
	KindSuccess Kind = "SUCCESS"
	KindError   Kind = "ERROR"
	KindInfo    Kind = "INFO"
)

// Toast is an ephemeral message shown to the user who triggered an action.
type Toast struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func Success(format string, args ...interface{}) Toast {
	return Toast{Kind: KindSuccess, Message: fmt.Sprintf(format, args...)}
}

func Error(format string, args ...interface{}) Toast {
	return Toast{Kind: KindError, Message: fmt.Sprintf(format, args...)}
}

func Info(format string, args ...interface{}) Toast {
	return Toast{Kind: KindInfo, Message: fmt.Sprintf(format, args...)}
}
