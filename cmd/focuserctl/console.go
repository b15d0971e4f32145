package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/jog"
	"github.com/nasa-jpl/atomfocus/lastport"
)

// spinner is shown while a port is opening
type spinner interface {
	Start() error
	Stop() error
	StopFail() error
}

// console runs typed commands against a controller
type console struct {
	ctl      *focuser.Controller
	jogger   *jog.Jogger
	ports    func() ([]string, error)
	store    lastport.Store
	fallback string
	out      io.Writer

	// spin, if set, makes a spinner for the port being opened
	spin func(port string) spinner
}

const usage = `Commands:
  connect [port]               open port, or the remembered/configured one
  disconnect                   close the port
  ports                        list serial ports
  up|down [fine|medium|coarse] jog, medium if no size is given
  wheel <delta> [size]         jog as a scroll wheel would
  step <n>                     move n steps, negative is up
  goto <n>                     move to absolute position n
  m1 | m2                      mark the current position
  center                       move to the midpoint of the marks
  enable | disable             power the motor on or off
  status                       show position, motor, and marks
  help                         show this list
  quit                         disconnect and exit`

// exec runs one command line and reports if the console should exit
func (c *console) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		fmt.Fprintln(c.out, usage)
	case "connect", "c":
		err = c.connect(args)
	case "disconnect", "dc":
		c.ctl.Disconnect()
	case "ports", "p":
		err = c.listPorts()
	case "up", "u", "down", "d":
		err = c.jog(cmd, args)
	case "wheel", "w":
		err = c.wheel(args)
	case "step", "s":
		var n int
		if n, err = intArg(args); err == nil {
			err = c.ctl.MoveStep(n)
		}
	case "goto", "g":
		var n int
		if n, err = intArg(args); err == nil {
			err = c.ctl.SetAbsolutePosition(n)
		}
	case "m1":
		c.ctl.MarkFirst()
		c.printMarks()
	case "m2":
		c.ctl.MarkSecond()
		c.printMarks()
	case "center":
		err = c.ctl.RecenterToMarks()
	case "enable":
		err = c.ctl.Enable()
	case "disable":
		err = c.ctl.Disable()
	case "status", "st":
		c.printStatus()
	case "quit", "exit", "q":
		c.ctl.Disconnect()
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil && local(err) {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

// usageError is a failure on the console side, such as a mistyped command
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }

var errNoPort = &usageError{errors.New("no port given and none remembered or configured")}

// local is true for errors that did not come from the controller, which
// reports its own through the notifier
func local(err error) bool {
	var ue *usageError
	return errors.As(err, &ue) || errors.Is(err, jog.ErrThrottled)
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, &usageError{errors.New("expected one integer argument")}
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, &usageError{fmt.Errorf("%q is not an integer", args[0])}
	}
	return n, nil
}

func (c *console) connect(args []string) error {
	var port string
	if len(args) > 0 {
		port = args[0]
	} else {
		port = c.preferred()
	}
	if port == "" {
		return errNoPort
	}
	var s spinner
	if c.spin != nil {
		s = c.spin(port)
		s.Start()
	}
	err := c.ctl.Connect(port)
	if s != nil {
		if err != nil {
			s.StopFail()
		} else {
			s.Stop()
		}
	}
	return err
}

// preferred is the remembered port if it is present, else the configured one
func (c *console) preferred() string {
	saved, _ := c.store.Load()
	avail, _ := c.ports()
	return lastport.Preferred(saved, avail, c.fallback)
}

func (c *console) listPorts() error {
	ports, err := c.ports()
	if err != nil {
		return &usageError{err}
	}
	if len(ports) == 0 {
		fmt.Fprintln(c.out, "No serial ports found")
		return nil
	}
	pref := c.preferred()
	for _, p := range ports {
		mark := " "
		if p == pref {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", mark, p)
	}
	return nil
}

func (c *console) jog(cmd string, args []string) error {
	dir, err := jog.ParseDirection(cmd)
	if err != nil {
		return &usageError{err}
	}
	size, err := sizeArg(args)
	if err != nil {
		return err
	}
	return c.jogger.Jog(jog.Gesture{Size: size, Direction: dir})
}

func (c *console) wheel(args []string) error {
	if len(args) == 0 {
		return &usageError{errors.New("usage: wheel <delta> [size]")}
	}
	delta, err := intArg(args[:1])
	if err != nil {
		return err
	}
	size, err := sizeArg(args[1:])
	if err != nil {
		return err
	}
	return c.jogger.Jog(jog.Gesture{Size: size, Direction: jog.Wheel(delta)})
}

func sizeArg(args []string) (jog.Size, error) {
	if len(args) == 0 {
		return jog.Medium, nil
	}
	size, err := jog.ParseSize(args[0])
	if err != nil {
		return size, &usageError{err}
	}
	return size, nil
}

func (c *console) printMarks() {
	m := c.ctl.Marks()
	fmt.Fprintf(c.out, "M1: %s  M2: %s\n", markStr(m.M1()), markStr(m.M2()))
}

func markStr(v int, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.Itoa(v)
}

func (c *console) printStatus() {
	s := c.ctl.Status()
	conn := "disconnected"
	if s.Connected {
		conn = "connected to " + s.Port
	}
	fmt.Fprintf(c.out, "%s, position %d, motor %s, power-off after %s\n", conn, s.Position, s.Motor, s.IdleTimeout)
	c.printMarks()
}
