// Package station implements the coordinating host: it listens for
// discovery pings, hands each robot a dedicated command port, and
// fans out game status, emergency stop and control frames.
package station

import (
	"sort"
	"time"

	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

// Robot is one discovered robot.
type Robot struct {
	ID   wire.DeviceID `json:"id"`
	Addr string        `json:"addr"`
	// Port is the command port assigned to the robot.
	Port int `json:"port"`
	// ReplyPort is where assignment replies go. Simulated robots
	// listen off the shared discovery port and say so in their
	// pings.
	ReplyPort int       `json:"replyPort"`
	LastSeen  time.Time `json:"lastSeen"`
}

// DefaultStaleAfter is how long a robot may stay silent before it is
// dropped from the registry.
const DefaultStaleAfter = 10 * time.Second

// Registry tracks discovered robots and owns command-port
// allocation. It is not safe for concurrent use; the station loop
// is its only caller.
type Registry struct {
	StaleAfter time.Duration

	nextPort int
	robots   map[wire.DeviceID]*Robot
}

// NewRegistry creates an empty registry allocating ports from the
// well-known base.
func NewRegistry() *Registry {
	return &Registry{
		StaleAfter: DefaultStaleAfter,
		nextPort:   wire.CommandPortBase,
		robots:     make(map[wire.DeviceID]*Robot),
	}
}

// Observe records a discovery ping, allocating a command port on
// first contact. Ports are handed out monotonically so a robot that
// drops and returns never collides with a live assignment.
func (r *Registry) Observe(ping wire.DiscoveryPing, now time.Time) (Robot, bool) {
	replyPort := ping.Port
	if replyPort == 0 {
		replyPort = wire.DiscoveryPort
	}
	if robot, ok := r.robots[ping.ID]; ok {
		robot.Addr = ping.Addr
		robot.ReplyPort = replyPort
		robot.LastSeen = now
		return *robot, false
	}
	robot := &Robot{
		ID:        ping.ID,
		Addr:      ping.Addr,
		Port:      r.nextPort,
		ReplyPort: replyPort,
		LastSeen:  now,
	}
	r.nextPort++
	r.robots[ping.ID] = robot
	return *robot, true
}

// Expire drops robots that have been silent longer than StaleAfter
// and returns them.
func (r *Registry) Expire(now time.Time) []Robot {
	var stale []Robot
	for id, robot := range r.robots {
		if now.Sub(robot.LastSeen) > r.StaleAfter {
			stale = append(stale, *robot)
			delete(r.robots, id)
		}
	}
	return stale
}

// Refresh clears the registry to force rediscovery. Allocated ports
// are not reused.
func (r *Registry) Refresh() {
	r.robots = make(map[wire.DeviceID]*Robot)
}

// Lookup finds a robot by id.
func (r *Registry) Lookup(id wire.DeviceID) (Robot, bool) {
	if robot, ok := r.robots[id]; ok {
		return *robot, true
	}
	return Robot{}, false
}

// Robots returns all known robots ordered by id.
func (r *Registry) Robots() []Robot {
	robots := make([]Robot, 0, len(r.robots))
	for _, robot := range r.robots {
		robots = append(robots, *robot)
	}
	sort.Slice(robots, func(i, j int) bool { return robots[i].ID < robots[j].ID })
	return robots
}
