package station

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Feed pushes station snapshots to websocket subscribers so a UI
// can render the robot list without polling. Broadcast never blocks
// the loop goroutine: a slow consumer drops updates instead.
type Feed struct {
	lock     sync.Mutex
	sockets  []*websocket.Conn
	messages chan []byte
}

// NewFeed creates a Feed and starts its writer.
func NewFeed() *Feed {
	f := &Feed{messages: make(chan []byte, 64)}
	go f.writer()
	return f
}

// Broadcast queues a JSON-encoded value for all subscribers.
func (f *Feed) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("encode feed message: %v", err)
		return
	}
	select {
	case f.messages <- data:
	default:
		glog.V(1).Info("feed congested, snapshot dropped")
	}
}

// Handler returns the websocket endpoint serving the feed.
func (f *Feed) Handler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		f.lock.Lock()
		f.sockets = append(f.sockets, conn)
		f.lock.Unlock()
		// Hold the connection until the peer goes away; inbound
		// payloads are discarded.
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				break
			}
		}
		f.remove(conn)
	})
}

func (f *Feed) writer() {
	for data := range f.messages {
		f.lock.Lock()
		sockets := make([]*websocket.Conn, len(f.sockets))
		copy(sockets, f.sockets)
		f.lock.Unlock()
		for _, conn := range sockets {
			if err := websocket.Message.Send(conn, string(data)); err != nil {
				conn.Close()
				f.remove(conn)
			}
		}
	}
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.lock.Lock()
	for i, c := range f.sockets {
		if c == conn {
			f.sockets = append(f.sockets[:i], f.sockets[i+1:]...)
			break
		}
	}
	f.lock.Unlock()
}
