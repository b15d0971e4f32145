package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/atomfocus/config"
	"github.com/nasa-jpl/atomfocus/focuser"
	"github.com/nasa-jpl/atomfocus/generichttp/motion"
	"github.com/nasa-jpl/atomfocus/jog"
	"github.com/nasa-jpl/atomfocus/lastport"
	"github.com/nasa-jpl/atomfocus/logger"
	"github.com/nasa-jpl/atomfocus/notify"
	"github.com/nasa-jpl/atomfocus/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = config.FileName
	k              = koanf.New(".")
	cfg            config.Config
)

func setupconfig() {
	var err error
	cfg, err = config.Load(k, ConfigFileName)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
}

func root() {
	str := `focusersrv drives a stepper focuser over a serial line and exposes an
HTTP interface to it.

Usage:
	focusersrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `focusersrv is amenable to configuration via its .yml file, ` + ConfigFileName + `.
For a primer on YAML, see https://yaml.org/start.html
Any key may also be set from the environment, e.g. ATOMFOCUS_PORT=COM5 or
ATOMFOCUS_STEPS__FINE=5.  Changes to the file are picked up while running
for LogLevel, AutoPowerOffMinutes, and JogRate.

Port is a serial device (COM5, /dev/ttyUSB0) or a host:port pair for a
serial-to-ethernet bridge.  The last port connected to is remembered in
LastPortFile and preferred when it is present.

Routes, under /focuser:
	GET  /pos              {"int": position}
	POST /pos              {"int": target}          absolute move
	POST /step             {"int": delta}           relative move
	POST /jog              {"size": "fine|medium|coarse", "direction": "up|down"}
	                       or {"size": ..., "wheel": delta}
	GET  /enabled          POST /enabled {"bool": on}
	POST /mark/1           POST /mark/2             GET /marks
	POST /recenter                                  move to the midpoint of the marks
	POST /connect {"str": port}    POST /disconnect  GET /connected  GET /port
	GET  /ports            GET /status
	GET  /idle-timeout     POST /idle-timeout {"int": seconds}
	GET  /lock             POST /lock {"bool": locked}   423 to writes while locked
	GET  /endpoints
and GET /events, a Server-Sent Events stream of position, connection, and
error events.`
	fmt.Println(str)
}

func mkconf() {
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(cfg)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	err := yml.NewEncoder(os.Stdout).Encode(cfg)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("focusersrv version %v\n", Version)
}

func run() {
	lg, level, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
	opener, ports := cfg.Backend()
	store := lastport.Store{Path: cfg.LastPortFile}
	events := notify.NewBroadcaster()
	ctl := focuser.New(opener,
		focuser.WithLogger(lg),
		focuser.WithNotifier(notify.Multi{notify.Log{L: lg}, events}),
		focuser.WithPortSaver(store),
		focuser.WithIdleTimeout(cfg.IdleTimeout()))
	jogger := jog.New(ctl, cfg.Steps, cfg.JogRate, cfg.JogBurst)

	if cfg.AutoConnect {
		autoconnect(lg, ctl, store, ports)
	}

	err = config.Watch(ConfigFileName, func(c config.Config, err error) {
		if err != nil {
			lg.Warn("config reload failed", "err", err)
			return
		}
		if lvl, err := logger.ParseLevel(c.LogLevel); err == nil {
			level.Set(lvl)
		}
		ctl.SetIdleTimeout(c.IdleTimeout())
		jogger.SetRate(c.JogRate)
		lg.Info("config reloaded", "file", ConfigFileName)
	})
	if err != nil {
		lg.Debug("not watching config", "err", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		ctl.Disconnect()
		os.Exit(0)
	}()

	mux := BuildMux(ctl, jogger, ports, events)
	lg.Info("now listening for requests", "addr", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, mux))
}

// BuildMux assembles the HTTP interface to ctl
func BuildMux(ctl *focuser.Controller, jogger *jog.Jogger, ports func() ([]string, error), events *notify.Broadcaster) chi.Router {
	h := motion.NewHTTPFocuser(ctl)
	motion.HTTPJog(jogger, h.RT())
	motion.HTTPPorts(ports, h.RT())
	lock := locker.New()
	locker.Inject(h, lock)

	r := chi.NewRouter()
	r.Use(lock.Check)
	h.RT().Bind(r)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Mount("/focuser", r)
	root.Get("/events", events.ServeHTTP)
	return root
}

func autoconnect(lg *slog.Logger, ctl *focuser.Controller, store lastport.Store, ports func() ([]string, error)) {
	saved, err := store.Load()
	if err != nil {
		lg.Warn("could not read last port", "err", err)
	}
	avail, err := ports()
	if err != nil {
		lg.Warn("could not list ports", "err", err)
	}
	port := lastport.Preferred(saved, avail, cfg.Port)
	if port == "" {
		lg.Warn("AutoConnect set but no port is configured or present")
		return
	}
	// a failure is reported through the notifier; keep serving so a client can retry
	ctl.Connect(port)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
