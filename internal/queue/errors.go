package queue

import "errors"

var (
	ErrAlreadyQueued   = errors.New("you are already in the queue")
	ErrNotInQueue      = errors.New("you are not in the queue")
	ErrHostQueueFull   = errors.New("the hosts queue is currently full")
	ErrPlayerQueueFull = errors.New("the queue is currently full")
)
