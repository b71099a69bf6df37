package line

import "context"

type NotifierInterface interface {
	Dispatch(ctx context.Context, msg Notification) error
}

var _ NotifierInterface = (*Notifier)(nil)
