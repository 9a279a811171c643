package ws

import (
	"fmt"
	"reflect"
)

var typeRegistry = map[string]reflect.Type{}

func init() {
	// Register all message types
	RegisterType(&MessageWatchLecture{})
	RegisterType(&MessageUnwatchLecture{})
	RegisterType(&MessageWatchThread{})
	RegisterType(&MessageUnwatchThread{})
	RegisterType(&MessagePing{})
	RegisterType(&MessagePong{})
}

func RegisterType(msg Message) {
	typeRegistry[msg.GetType()] = reflect.TypeOf(msg).Elem()
}

func newMessage(msgType string) (Message, error) {
	t, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}
	return reflect.New(t).Interface().(Message), nil
}
