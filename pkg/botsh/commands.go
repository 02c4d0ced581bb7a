package botsh

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/lancerbots/minibot.go/pkg/minibot/wire"
)

var (
	// DiscoverCmd listens for discovery pings.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"l"},
		Help:    "[SECONDS]",
		Func: func(c *ishell.Context) {
			d := 3 * time.Second
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("bad duration %q", c.Args[0]))
					return
				}
				d = time.Duration(secs) * time.Second
			}
			c.Printf("listening for pings for %s ...\n", d)
			heard, err := ShellFrom(c).Collect(d)
			if err != nil {
				c.Err(err)
				return
			}
			if len(heard) == 0 {
				c.Println("no new robots heard")
				return
			}
			for _, robot := range heard {
				c.Printf("%s at %s (port %d reserved)\n", robot.ID, robot.Addr, robot.Port)
			}
		},
	}

	// PairCmd assigns a robot its reserved command port.
	PairCmd = ishell.Cmd{
		Name:    "pair",
		Aliases: []string{"assign"},
		Help:    "ID",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: pair ID"))
				return
			}
			s := ShellFrom(c)
			robot, err := s.Lookup(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			assign := wire.PortAssignment{ID: robot.ID, Port: robot.Port}
			if err := s.SendReply(robot, assign.Encode()); err != nil {
				c.Err(err)
				return
			}
			c.Printf("assigned port %d to %s\n", robot.Port, robot.ID)
		},
	}

	// RobotsCmd lists every robot heard so far.
	RobotsCmd = ishell.Cmd{
		Name: "robots",
		Func: func(c *ishell.Context) {
			robots := ShellFrom(c).Registry.Robots()
			if len(robots) == 0 {
				c.Println("no robots known")
				return
			}
			for _, robot := range robots {
				c.Printf("%s at %s port %d, last seen %s\n",
					robot.ID, robot.Addr, robot.Port,
					robot.LastSeen.Format("15:04:05"))
			}
		},
	}

	// StatusCmd sends a game phase to one robot.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "ID standby|teleop|autonomous",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: status ID PHASE"))
				return
			}
			phase, ok := wire.ParseGamePhase(c.Args[1])
			if !ok {
				c.Err(fmt.Errorf("unknown phase %q", c.Args[1]))
				return
			}
			s := ShellFrom(c)
			robot, err := s.Lookup(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			status := wire.StatusUpdate{ID: robot.ID, Phase: phase}
			if err := s.SendCommand(robot, status.Encode()); err != nil {
				c.Err(err)
			}
		},
	}

	// EStopCmd latches the stop on every known robot.
	EStopCmd = ishell.Cmd{
		Name: "estop",
		Func: func(c *ishell.Context) {
			broadcastStop(c, wire.EmergencyStop{}.Encode(), "stopped")
		},
	}

	// ReleaseCmd releases the stop on every known robot.
	ReleaseCmd = ishell.Cmd{
		Name: "release",
		Func: func(c *ishell.Context) {
			broadcastStop(c, wire.EmergencyStopRelease{}.Encode(), "released")
		},
	}

	// SendCmd sends one control frame.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "ID LX LY RX RY [BUTTONS: any of x c s t]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 5 {
				c.Err(fmt.Errorf("usage: send ID LX LY RX RY [BUTTONS]"))
				return
			}
			s := ShellFrom(c)
			robot, err := s.Lookup(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			var raw [4]uint8
			for i, arg := range c.Args[1:5] {
				v, err := strconv.Atoi(arg)
				if err != nil || v < 0 || v > 255 {
					c.Err(fmt.Errorf("axis value %q not in 0..255", arg))
					return
				}
				raw[i] = uint8(v)
			}
			var buttons wire.Buttons
			if len(c.Args) > 5 {
				if buttons, err = parseButtons(c.Args[5]); err != nil {
					c.Err(err)
					return
				}
			}
			frame := wire.ControlFrame{
				ID:      robot.ID,
				Axes:    wire.Axes{LeftX: raw[0], LeftY: raw[1], RightX: raw[2], RightY: raw[3]},
				Buttons: buttons,
			}
			if err := s.SendCommand(robot, frame.Encode()); err != nil {
				c.Err(err)
			}
		},
	}
)

func broadcastStop(c *ishell.Context, pkt []byte, verb string) {
	s := ShellFrom(c)
	for _, robot := range s.Registry.Robots() {
		// Both ports, the robot may be back in discovery.
		if err := s.SendCommand(robot, pkt); err != nil {
			c.Err(err)
		}
		if err := s.SendReply(robot, pkt); err != nil {
			c.Err(err)
		}
		c.Printf("%s %s\n", robot.ID, verb)
	}
}

func parseButtons(arg string) (wire.Buttons, error) {
	var buttons wire.Buttons
	for _, r := range arg {
		switch r {
		case 'x':
			buttons |= wire.ButtonCross
		case 'c':
			buttons |= wire.ButtonCircle
		case 's':
			buttons |= wire.ButtonSquare
		case 't':
			buttons |= wire.ButtonTriangle
		default:
			return 0, fmt.Errorf("unknown button %q", r)
		}
	}
	return buttons, nil
}
