package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/chzyer/readline"
	"github.com/knadh/koanf"
	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/atomfocus/config"
	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/jog"
	"github.com/nasa-jpl/atomfocus/lastport"
	"github.com/nasa-jpl/atomfocus/notify"
)

// Version is the version number.  Typically injected via ldflags with git build
var Version = "1"

func main() {
	confPath := flag.String("config", config.FileName, "configuration file")
	mock := flag.Bool("mock", false, "use an in-memory focuser instead of a serial port")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()
	if *version {
		fmt.Printf("focuserctl version %v\n", Version)
		return
	}

	cfg, err := config.Load(koanf.New("."), *confPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if *mock {
		cfg.Mock = true
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "focuser> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("failed to create readline: %v", err)
	}
	defer rl.Close()

	lg, _, err := cfg.Logger(rl.Stderr())
	if err != nil {
		log.Fatal(err)
	}
	out := rl.Stdout()
	display := notify.Func{
		Position: func(pos int) { fmt.Fprintf(out, "Position: %d\n", pos) },
		Connection: func(port string, connected bool) {
			if connected {
				fmt.Fprintf(out, "Open: %s\n", port)
			} else {
				fmt.Fprintf(out, "Close: %s\n", port)
			}
		},
		Err: func(err error) { fmt.Fprintf(out, "Error: %v\n", err) },
	}

	opener, ports := cfg.Backend()
	store := lastport.Store{Path: cfg.LastPortFile}
	ctl := focuser.New(opener,
		focuser.WithLogger(lg),
		focuser.WithNotifier(display),
		focuser.WithPortSaver(store),
		focuser.WithIdleTimeout(cfg.IdleTimeout()))

	c := &console{
		ctl:      ctl,
		jogger:   jog.New(ctl, cfg.Steps, cfg.JogRate, cfg.JogBurst),
		ports:    ports,
		store:    store,
		fallback: cfg.Port,
		out:      out,
		spin: func(port string) spinner {
			s, err := yacspin.New(yacspin.Config{
				Frequency:         100 * time.Millisecond,
				CharSet:           yacspin.CharSets[14],
				Writer:            out,
				Suffix:            " opening " + port,
				StopCharacter:     "✓",
				StopColors:        []string{"fgGreen"},
				StopFailCharacter: "✗",
				StopFailColors:    []string{"fgRed"},
			})
			if err != nil {
				return nopSpinner{}
			}
			return s
		},
	}

	fmt.Fprintln(out, usage)
	if p := c.preferred(); p != "" {
		fmt.Fprintf(out, "Type 'connect' to open %s\n", p)
	}
	for {
		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			ctl.Disconnect()
			fmt.Fprintln(out, "Exiting...")
			return
		}
		if c.exec(line) {
			return
		}
	}
}

type nopSpinner struct{}

func (nopSpinner) Start() error    { return nil }
func (nopSpinner) Stop() error     { return nil }
func (nopSpinner) StopFail() error { return nil }
