package telemetry

import (
	"context"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	fx "github.com/lancerbots/minibot.go/pkg/framework"
	"github.com/lancerbots/minibot.go/pkg/minibot"
	"github.com/lancerbots/minibot.go/pkg/station"
)

// Publisher forwards session and station notifications to the
// broker. It implements both minibot.Observer and station.Observer;
// wire whichever side applies.
type Publisher struct {
	Queue *Queue
	ID    string
}

// NewPublisher creates a Publisher for the broker URL.
func NewPublisher(brokerURL, id string) (*Publisher, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{Queue: q, ID: id}, nil
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(p)
}

// Run implements Runnable: hold the broker connection for the
// lifetime of the loop.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	p.Queue.Close()
	return ctx.Err()
}

func (p *Publisher) publish(topic string, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		glog.Errorf("encode %s event: %v", topic, err)
		return
	}
	p.Queue.Pub(topic, data)
}

// StateChanged implements minibot.Observer.
func (p *Publisher) StateChanged(state minibot.State, port int) {
	p.publish(TopicSession, &SessionEvent{ID: p.ID, State: state.String(), Port: uint32(port)})
}

// EStopChanged implements minibot.Observer.
func (p *Publisher) EStopChanged(latched bool) {
	p.publish(TopicEStop, &EStopEvent{ID: p.ID, Latched: latched})
}

// RobotDiscovered implements station.Observer.
func (p *Publisher) RobotDiscovered(r station.Robot) {
	p.publish(TopicRobots, &RobotEvent{ID: string(r.ID), Addr: r.Addr, Port: uint32(r.Port)})
}

// RobotLost implements station.Observer.
func (p *Publisher) RobotLost(r station.Robot) {
	p.publish(TopicRobots, &RobotEvent{ID: string(r.ID), Addr: r.Addr, Port: uint32(r.Port), Lost: true})
}
