/*
Runs the testbed on top of the engine package, or drives it headless to
render a frame to a PNG file or to benchmark the batch renderer.
*/
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/schollz/progressbar/v3"
	"github.com/spaghettifunk/anima2d/engine"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
	"github.com/spaghettifunk/anima2d/testbed"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app        = kingpin.New("anima2d", "A batched 2D quad renderer.")
	configPath = app.Flag("config", "Path to a .toml or .yaml configuration file.").Short('c').String()
	logLevel   = app.Flag("log-level", "Overrides the configured log level.").Enum("debug", "info", "warn", "error", "fatal")
	profiling  = app.Flag("profile", "Writes a cpu or mem profile to the working directory.").Enum("cpu", "mem")

	runCmd = app.Command("run", "Opens a window and runs the testbed.").Default()

	renderCmd    = app.Command("render", "Renders the testbed headless and writes the last frame as PNG.")
	renderOut    = renderCmd.Flag("out", "Output PNG file.").Default("frame.png").String()
	renderFrames = renderCmd.Flag("frames", "Frames to render before the snapshot.").Default("1").Uint64()
	renderWidth  = renderCmd.Flag("width", "Framebuffer width.").Default("640").Uint32()
	renderHeight = renderCmd.Flag("height", "Framebuffer height.").Default("480").Uint32()

	benchCmd    = app.Command("bench", "Draws quads headless and reports the batching statistics.")
	benchFrames = benchCmd.Flag("frames", "Frames to draw.").Default("100").Uint64()
	benchQuads  = benchCmd.Flag("quads", "Quads per frame.").Default("10000").Uint32()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch *profiling {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case runCmd.FullCommand():
		err = run(ctx, config)
	case renderCmd.FullCommand():
		err = render(ctx, config)
	case benchCmd.FullCommand():
		err = bench(ctx, config)
	}
	if err != nil {
		core.LogError("%s failed: %s", command, err)
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*engine.ApplicationConfig, error) {
	config := engine.DefaultApplicationConfig()
	if *configPath != "" {
		var err error
		if config, err = engine.LoadApplicationConfig(*configPath); err != nil {
			return nil, err
		}
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	return config, nil
}

func start(g *engine.Game, opts ...engine.Option) (*engine.Engine, error) {
	e, err := engine.New(g, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return e, nil
}

func run(ctx context.Context, config *engine.ApplicationConfig) error {
	tb, err := testbed.NewTestGame(config)
	if err != nil {
		return err
	}
	e, err := start(tb.Game)
	if err != nil {
		return err
	}
	defer e.Shutdown()
	return e.Run(ctx)
}

func headless(config *engine.ApplicationConfig, width, height uint32) {
	config.StartWidth = width
	config.StartHeight = height
	config.Renderer.Backend = string(metadata.RendererBackendTypeSoftware)
}

func render(ctx context.Context, config *engine.ApplicationConfig) error {
	headless(config, *renderWidth, *renderHeight)
	tb, err := testbed.NewTestGame(config)
	if err != nil {
		return err
	}
	backend := software.New()
	e, err := start(tb.Game, engine.WithHeadless(*renderFrames), engine.WithBackend(backend))
	if err != nil {
		return err
	}
	defer e.Shutdown()
	if err := e.Run(ctx); err != nil {
		return err
	}

	f, err := os.Create(*renderOut)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, backend.Snapshot()); err != nil {
		return err
	}
	core.LogInfo("wrote frame %d to %s", e.FrameCount(), *renderOut)
	return nil
}

func bench(ctx context.Context, config *engine.ApplicationConfig) error {
	headless(config, 1280, 720)
	quads := *benchQuads
	g := &engine.Game{
		ApplicationConfig: config,
		FnRender: func(r *renderer.Renderer2D, deltaTime float64) error {
			for i := uint32(0); i < quads; i++ {
				x := float32(i%128) * 10
				y := float32(i/128%72) * 10
				if err := r.DrawQuad(math.NewVec3(x, y, 0), math.NewVec2(8, 8), math.NewVec4(x/1280, y/720, 0.5, 1)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	pb := progressbar.Default(int64(*benchFrames))
	defer pb.Close()

	var drawCalls, quadCount uint64
	e, err := start(g, engine.WithHeadless(*benchFrames), engine.WithFrameObserver(func(frame uint64, stats metadata.RendererStatistics) {
		drawCalls += uint64(stats.DrawCalls)
		quadCount += uint64(stats.QuadCount)
		pb.Add(1)
	}))
	if err != nil {
		return err
	}
	defer e.Shutdown()
	e.Overlay().Visible = false

	begin := time.Now()
	if err := e.Run(ctx); err != nil {
		return err
	}
	elapsed := time.Since(begin)

	frames := e.FrameCount()
	if frames == 0 {
		return nil
	}
	fmt.Printf("\n%d frames in %s\n", frames, elapsed)
	fmt.Printf("quads per batch:     %d\n", e.Renderer().QuadsPerBatch())
	fmt.Printf("draw calls / frame:  %.2f\n", float64(drawCalls)/float64(frames))
	fmt.Printf("quads / second:      %.0f\n", float64(quadCount)/elapsed.Seconds())
	return nil
}
