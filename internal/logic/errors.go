package logic

import (
	"errors"

	"github.com/blues/grants/internal/model"
)

var (
	// ErrNotFound grant、里程碑、订阅或用户不存在
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied 无权执行该操作
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidInput 请求参数不合法
	ErrInvalidInput = errors.New("invalid input")
)

// StateError 当前状态不允许该操作，带有面向用户的标题和说明
type StateError struct {
	Title string
	Text  string
	Grant *model.GrantModel
}

func (e *StateError) Error() string {
	return e.Text
}

func grantEndedError(grant *model.GrantModel) *StateError {
	return &StateError{
		Title: "Grant Ended",
		Text:  "This Grant is not longer active.",
		Grant: grant,
	}
}

func ownGrantError(grant *model.GrantModel) *StateError {
	return &StateError{
		Title: "Invalid Grant Subscription",
		Text:  "You cannot fund your own Grant.",
		Grant: grant,
	}
}

func subscriptionExistsError(grant *model.GrantModel) *StateError {
	return &StateError{
		Title: "Subscription Exists",
		Text:  "You already have an active subscription for this grant.",
		Grant: grant,
	}
}

// subscriptionCancelledError 同一状态根据 grant 是否仍有效给出不同提示
func subscriptionCancelledError(grant *model.GrantModel) *StateError {
	err := &StateError{
		Title: "Grant Subscription Cancelled",
		Grant: grant,
	}
	if grant != nil && grant.Active {
		err.Text = "This Grant subscription has already been cancelled."
	} else {
		err.Text = "This Subscription is already cancelled as the grant is not longer active."
	}
	return err
}

// IsStateError 判断并取出 StateError
func IsStateError(err error) (*StateError, bool) {
	var se *StateError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
