// Package botsh is the interactive protocol shell used to exercise
// robots by hand: listen for discovery pings, hand out command ports,
// flip game phases, fire stops and send individual control frames.
package botsh

import (
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/lancerbots/minibot.go/pkg/minibot/driver/udp"
	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
	"github.com/lancerbots/minibot.go/pkg/station"
)

// Shell provides the ishell backed interactive shell. All commands
// run on the shell goroutine, so the connection and registry need no
// locking.
type Shell struct {
	Interactive bool

	Shell    *ishell.Shell
	Conn     *udp.Conn
	Registry *station.Registry
}

const (
	shellKey = "$shell"
	prompt   = "bot> "
)

var (
	// flags

	evalOnly   bool
	listenPort = wire.DiscoveryPort

	// commands

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&PairCmd,
		&RobotsCmd,
		&StatusCmd,
		&EStopCmd,
		&ReleaseCmd,
		&SendCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.IntVar(&listenPort, "listen", listenPort, "Port to listen for discovery pings on.")
}

// New creates a new shell bound to the discovery port.
func New() (*Shell, error) {
	conn, err := udp.OpenConn(listenPort)
	if err != nil {
		return nil, err
	}
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Conn:        conn,
		Registry:    station.NewRegistry(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Collect drains discovery pings until the deadline, recording every
// robot heard in the registry.
func (s *Shell) Collect(d time.Duration) ([]station.Robot, error) {
	deadline := time.Now().Add(d)
	var heard []station.Robot
	for time.Now().Before(deadline) {
		pkt, from, err := s.Conn.TryReceive()
		if err != nil {
			return heard, err
		}
		if pkt == nil {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		ping, ok := wire.DecodeDiscovery(pkt)
		if !ok {
			continue
		}
		if host, _, err := net.SplitHostPort(from); err == nil && host != "" {
			ping.Addr = host
		}
		robot, isNew := s.Registry.Observe(ping, time.Now())
		if isNew {
			heard = append(heard, robot)
		}
	}
	return heard, nil
}

// Lookup resolves a robot by id, erroring on unknown ones.
func (s *Shell) Lookup(id string) (station.Robot, error) {
	robot, ok := s.Registry.Lookup(wire.DeviceID(id))
	if !ok {
		return station.Robot{}, fmt.Errorf("unknown robot %q, run discover first", id)
	}
	return robot, nil
}

// SendCommand sends a datagram to the robot's assigned command port.
func (s *Shell) SendCommand(robot station.Robot, pkt []byte) error {
	return s.Conn.SendTo(net.JoinHostPort(robot.Addr, strconv.Itoa(robot.Port)), pkt)
}

// SendReply sends a datagram to the port the robot pings from.
func (s *Shell) SendReply(robot station.Robot, pkt []byte) error {
	return s.Conn.SendTo(net.JoinHostPort(robot.Addr, strconv.Itoa(robot.ReplyPort)), pkt)
}

// Run runs the shell, either interactively or evaluating args.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s, err := New()
	if err != nil {
		log.Fatalln(err)
	}
	s.Run(flag.Args()...)
}
