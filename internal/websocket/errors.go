package websocket

import "errors"

var errSendBufferFull = errors.New("websocket: client send buffer full")
