package queue

import "golang.org/x/xerrors"

var ErrNoSubscriber = xerrors.New("queue has no subscriber")

// IService hands discovered video references from a publisher to a single
// subscriber
type IService interface {
	Publish(refs []string) error
	Subscribe() (<-chan []string, error)
	Unsubscribe() error
	Finalize()
}
