package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/camctl/internal/config"
	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/camera"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
	"github.com/cjeanneret/camctl/internal/hw/gpio"
	"github.com/cjeanneret/camctl/internal/imaging"
	"github.com/cjeanneret/camctl/internal/web"
)

const usage = `usage: camctl [flags] <command> [args]

commands:
  list [-usb]           list detected cameras
  connect               connect once
  wait                  retry until a camera answers
  status                show the connection state
  get NAME              print a setting
  set NAME VALUE        write a setting
  choices NAME          list the values of a menu setting
  config                list every setting
  summary               print exposure settings and battery
  af on|off             drive the autofocus
  capture [-o FILE]     take a picture
  preview [-o FILE]     grab a live-view frame
  timelapse [-count N] [-interval D] [-o DIR]
  shell                 interactive prompt
  serve                 start the web server (same as -web)

flags:
`

func main() {
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	model := flag.String("model", "", "camera model (overrides camera.model)")
	port := flag.String("port", "", "camera port, e.g. usb:001,005 (overrides camera.port)")
	debugLevel := flag.Int("debug", -1, "debug level 0-4 (overrides defaults.debug_level)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := applyFlags(cfg, *model, *port, *debugLevel); err != nil {
		log.Fatalf("invalid flag: %v", err)
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Backend", cfg.Camera.Backend)

	a, err := newApp(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	defer a.close()

	cmd, args := "", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	if webPort.port() > 0 && cmd == "" {
		cmd = "serve"
	}

	switch cmd {
	case "":
		flag.Usage()
		os.Exit(2)
	case "serve":
		p := webPort.port()
		if p == 0 {
			p = webPort.defaultPort
		}
		if err := a.serve(ctx, p); err != nil {
			log.Fatalf("web server: %v", err)
		}
	case "shell":
		if err := a.shell(ctx); err != nil {
			log.Fatalf("shell: %v", err)
		}
	default:
		if err := a.run(ctx, cmd, args); err != nil {
			if errors.Is(err, errUsage) {
				flag.Usage()
				os.Exit(2)
			}
			log.Fatalf("%s: %v", cmd, err)
		}
	}
}

// applyFlags lets command-line flags override the file configuration.
func applyFlags(cfg *config.Config, model, port string, debugLevel int) error {
	if model != "" {
		cfg.Camera.Model = model
	}
	if port != "" {
		cfg.Camera.Port = port
	}
	if debugLevel >= 0 {
		if debugLevel > debug.LevelTrace {
			return fmt.Errorf("debug level must be between 0 and %d, got %d", debug.LevelTrace, debugLevel)
		}
		cfg.Defaults.DebugLevel = debugLevel
	}
	return nil
}

// app ties the configured camera to the commands.
type app struct {
	cfg  *config.Config
	cam  *camera.Camera
	gpio gpio.Driver
	out  io.Writer
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: out}

	debug.Step(1, "Selecting device library")
	driver := newDriver(cfg)

	debug.Step(2, "Building pre-connect hook")
	prep, err := a.newPreparer()
	if err != nil {
		a.close()
		return nil, err
	}

	var dec camera.Decoder
	if cfg.DecodeEnabled() {
		dec = imaging.Decoder{}
	}
	s := cfg.Settings
	a.cam = camera.New(driver, camera.Options{
		Preparer: prep,
		Decoder:  dec,
		Keys: camera.SettingKeys{
			Aperture:     s.Aperture,
			ISO:          s.ISO,
			ShutterSpeed: s.ShutterSpeed,
			FocalLength:  s.FocalLength,
			ImageQuality: s.ImageQuality,
			BatteryLevel: s.BatteryLevel,
			AutoFocus:    s.AutoFocus,
		},
		OpTimeout: cfg.OpTimeout(),
	})
	debug.PrintStruct("Setting keys", a.cam.Keys())
	return a, nil
}

// newDriver selects the device library from camera.backend.
func newDriver(cfg *config.Config) gphoto.Driver {
	if cfg.Camera.Backend == config.BackendSimulated {
		return gphoto.NewSimDriver()
	}
	return gphoto.NewCLIDriver(gphoto.ExecRunner{Path: cfg.Camera.Gphoto2Path}, cfg.Camera.DownloadDir)
}

// newPreparer builds the hook that runs before every connect attempt.
func (a *app) newPreparer() (camera.Preparer, error) {
	p := a.cfg.Prepare
	switch p.Type {
	case config.PrepareKillall:
		return camera.ProcessKiller{Names: p.KillProcesses, Command: p.KillCommand}, nil
	case config.PrepareGPIOWake:
		debug.Value("Mock GPIO", a.cfg.Defaults.MockGPIO)
		g, err := gpio.NewDriver(a.cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, fmt.Errorf("init GPIO: %w", err)
		}
		a.gpio = g
		wake, err := camera.NewGPIOWake(g, p.WakePin, a.cfg.WakeHold(), a.cfg.WakeSettle())
		if err != nil {
			return nil, err
		}
		return wake, nil
	}
	return camera.NopPreparer{}, nil
}

func (a *app) close() {
	if a.cam != nil {
		if err := a.cam.Close(); err != nil {
			log.Printf("closing camera failed: %v", err)
		}
	}
	if a.gpio != nil {
		if err := a.gpio.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}
}

// serve runs the web server until ctx ends.
func (a *app) serve(ctx context.Context, port int) error {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(a.out, web.BroadcastWriter(broadcaster)))

	c := a.cfg
	srv := web.NewServer(fmt.Sprintf(":%d", port), web.Deps{
		Broadcaster: broadcaster,
		Camera:      a.cam,
		RunTimelapse: func(ctx context.Context, req web.TimelapseRequest) error {
			res, err := a.timelapse(ctx, req.Count, time.Duration(req.IntervalMs)*time.Millisecond, c.Capture.OutputDir)
			if err == nil {
				broadcaster.Broadcast("info", fmt.Sprintf("%d taken, %d failed", res.Taken, res.Failed))
			}
			return err
		},
		FormDefaults: web.FormConfig{
			Count:      c.Capture.Count,
			IntervalMs: c.Capture.IntervalMs,
			OutputDir:  c.Capture.OutputDir,
		},
		Connect: web.ConnectDefaults{
			Model:         c.Camera.Model,
			Port:          c.Camera.Port,
			RetryInterval: c.RetryInterval(),
		},
		// Connect in the background so the page is up before the camera is.
		ConnectOnStart: true,
		Advertise:      c.Web.Advertise,
		InstanceName:   c.Web.InstanceName,
	})

	debug.Summary(fmt.Sprintf("Control server on port %d", port))
	return srv.Run(ctx)
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
