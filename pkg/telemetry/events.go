package telemetry

import "github.com/golang/protobuf/proto"

// Topics under the configured prefix.
const (
	// TopicSession carries SessionEvent from robots.
	TopicSession = "session"
	// TopicEStop carries EStopEvent from robots.
	TopicEStop = "estop"
	// TopicRobots carries RobotEvent from stations.
	TopicRobots = "robots"
)

// SessionEvent reports a robot connection-state change.
type SessionEvent struct {
	ID    string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	State string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Port  uint32 `protobuf:"varint,3,opt,name=port,proto3" json:"port,omitempty"`
}

// Reset implements proto.Message.
func (m *SessionEvent) Reset() { *m = SessionEvent{} }

// String implements proto.Message.
func (m *SessionEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*SessionEvent) ProtoMessage() {}

// EStopEvent reports an emergency-stop latch change on a robot.
type EStopEvent struct {
	ID      string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Latched bool   `protobuf:"varint,2,opt,name=latched,proto3" json:"latched,omitempty"`
}

// Reset implements proto.Message.
func (m *EStopEvent) Reset() { *m = EStopEvent{} }

// String implements proto.Message.
func (m *EStopEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*EStopEvent) ProtoMessage() {}

// RobotEvent reports a robot appearing in or dropping from a
// station registry.
type RobotEvent struct {
	ID   string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Addr string `protobuf:"bytes,2,opt,name=addr,proto3" json:"addr,omitempty"`
	Port uint32 `protobuf:"varint,3,opt,name=port,proto3" json:"port,omitempty"`
	Lost bool   `protobuf:"varint,4,opt,name=lost,proto3" json:"lost,omitempty"`
}

// Reset implements proto.Message.
func (m *RobotEvent) Reset() { *m = RobotEvent{} }

// String implements proto.Message.
func (m *RobotEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*RobotEvent) ProtoMessage() {}
