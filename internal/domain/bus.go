package domain

// MessageBus queues inbound messages between the chat channel and the
// moderator loop.
type MessageBus interface {
	Publish(msg Message)
	Subscribe() <-chan Message
	Close()
}
