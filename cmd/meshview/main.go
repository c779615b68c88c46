// meshview is an interactive viewer for 3D assets: it loads a model,
// normalizes it into the unit cube and lets you fly around it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/lighting"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/internal/viewer"
	"github.com/Faultbox/meshview/pkg/grf"
)

func main() {
	runtime.LockOSThread()

	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	if cfg.Scene.Model != "" {
		app.Open(cfg.Scene.Model)
	}
	app.Run()
}

// App is the viewer state. Everything except pending is touched only from
// the render thread.
type App struct {
	cfg     *config.Config
	backend backend.Backend[sdlbackend.SDLWindowFlags]

	session  *viewer.Session
	renderer *viewer.Renderer
	rig      *viewer.Rig
	watcher  *viewer.Watcher
	archive  *grf.Archive

	// Paths chosen in the file dialog, handed over to the render thread.
	pending chan string

	lastFrame    time.Time
	lastMousePos imgui.Vec2
	status       string
	statusTime   time.Time
	lastError    string
	lightAngles  [2]float32 // azimuth, elevation in degrees
	rotationDeg  float32
	screenshots  string
	showOptions  bool
}

// NewApp creates the window, GL state and the asset session.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:         cfg,
		pending:     make(chan string, 1),
		screenshots: filepath.Join(os.TempDir(), "meshview"),
		showOptions: true,
	}

	var err error
	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}
	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	logger.Info("OpenGL ready", zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))

	opts := scene.DefaultOptions()
	opts.FlipTextureV = cfg.Scene.FlipTextureV
	opts.Normalize = cfg.Scene.Normalize
	opts.MaxTextureSize = cfg.Scene.MaxTextureSize
	opts.Uploader = gpu.Uploader{}
	opts.Source = importer.Disk{}
	if cfg.Scene.GRFPath != "" {
		archive, err := grf.Open(cfg.Scene.GRFPath)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		app.archive = archive
		opts.Source = archive
	}
	app.session = viewer.NewSession(opts)

	app.rig = viewer.NewRig(cfg.Camera, cfg.Window.Width, cfg.Window.Height)
	settings := viewer.SettingsFromConfig(cfg.Render)
	app.renderer, err = viewer.NewRenderer(cfg.Window.Width, cfg.Window.Height, settings)
	if err != nil {
		return nil, err
	}
	az, el := lighting.Angles(settings.Light.Direction)
	app.lightAngles = [2]float32{az, el}

	if cfg.Scene.Watch {
		app.watcher, err = viewer.NewWatcher(200 * time.Millisecond)
		if err != nil {
			logger.Warn("hot reload disabled", zap.Error(err))
		}
	}
	if cfg.Render.VertexShader != "" {
		app.loadShaderFiles()
		app.watchShaders()
	}
	return app, nil
}

// watchShaders adds the configured shader files to the watcher. Replace
// drops them along with the previous asset, so Open calls this again.
func (app *App) watchShaders() {
	r := app.cfg.Render
	if app.watcher == nil || r.VertexShader == "" {
		return
	}
	for _, p := range []string{r.VertexShader, r.FragmentShader} {
		if err := app.watcher.Add(p); err != nil {
			logger.Warn("cannot watch shader", zap.String("path", p), zap.Error(err))
		}
	}
}

// Close releases GPU resources and the archive.
func (app *App) Close() {
	app.session.Close()
	if app.renderer != nil {
		app.renderer.Destroy()
		app.renderer = nil
	}
	if app.watcher != nil {
		app.watcher.Close()
		app.watcher = nil
	}
	if app.archive != nil {
		app.archive.Close()
		app.archive = nil
	}
}

// Run starts the main loop.
func (app *App) Run() {
	app.lastFrame = time.Now()
	app.backend.Run(app.render)
}

// Open loads path, keeping the current asset when it fails.
func (app *App) Open(path string) {
	app.opened(path, app.session.Open(path))
}

// OpenFile loads a path picked in the file dialog, always from disk.
func (app *App) OpenFile(path string) {
	app.opened(path, app.session.OpenFrom(importer.Disk{}, path))
}

func (app *App) opened(path string, err error) {
	if err != nil {
		app.lastError = err.Error()
		app.notify("Load failed")
		return
	}
	app.lastError = ""
	app.renderer.Selected = -1
	app.syncUserTransform()
	app.backend.SetWindowTitle(fmt.Sprintf("%s - %s", app.cfg.Window.Title, filepath.Base(path)))
	app.notify("Loaded " + filepath.Base(path))

	if _, disk := app.session.Source().(importer.Disk); disk && app.watcher != nil {
		if err := app.watcher.Replace(path); err != nil {
			logger.Warn("cannot watch asset", zap.String("path", path), zap.Error(err))
		}
		app.watchShaders()
	}
}

// Reload loads the current asset again.
func (app *App) Reload() {
	if path := app.session.Path(); path != "" {
		app.opened(path, app.session.Reload())
	}
}

func (app *App) loadShaderFiles() {
	r := app.cfg.Render
	if err := app.renderer.ReloadShader("default", r.VertexShader, r.FragmentShader); err != nil {
		app.lastError = err.Error()
		logger.Error("shader reload failed", zap.Error(err))
		return
	}
	app.notify("Shader reloaded")
}

// openFileDialog asks for a model off the render thread; the result is
// picked up by the next frame.
func (app *App) openFileDialog() {
	exts := make([]string, 0, len(importer.Extensions()))
	for _, ext := range importer.Extensions() {
		exts = append(exts, ext[1:])
	}
	go func() {
		filename, err := dialog.File().
			Filter("3D Models", exts...).
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				logger.Warn("file dialog failed", zap.Error(err))
			}
			return
		}
		select {
		case app.pending <- filename:
		default:
		}
	}()
}

func (app *App) saveScreenshot() {
	path := debug.ScreenshotName(app.screenshots, "meshview", time.Now())
	if err := debug.SavePNG(path, app.renderer.Image()); err != nil {
		logger.Error("screenshot failed", zap.Error(err))
		app.notify("Screenshot failed")
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
	app.notify("Saved " + path)
}

// saveSettings stores the current render options in the user config file.
func (app *App) saveSettings() {
	app.renderer.Settings.Store(&app.cfg.Render)
	app.cfg.Camera.Mode = app.rig.Mode
	app.cfg.Scene.FlipTextureV = app.session.Options.FlipTextureV
	app.cfg.Scene.Normalize = app.session.Options.Normalize
	if err := app.cfg.Save(); err != nil {
		logger.Error("saving settings failed", zap.Error(err))
		app.notify("Saving settings failed")
		return
	}
	app.notify("Settings saved")
}

func (app *App) notify(msg string) {
	app.status = msg
	app.statusTime = time.Now()
}

// pollEvents applies dialog results and file changes on the render thread.
func (app *App) pollEvents() {
	select {
	case path := <-app.pending:
		app.OpenFile(path)
	default:
	}

	if app.watcher == nil {
		return
	}
	for {
		select {
		case path := <-app.watcher.Changes():
			if app.isShaderFile(path) {
				app.loadShaderFiles()
			} else {
				logger.Info("asset changed on disk, reloading", zap.String("path", path))
				app.Reload()
			}
		default:
			return
		}
	}
}

func (app *App) isShaderFile(path string) bool {
	r := app.cfg.Render
	return r.VertexShader != "" &&
		(path == filepath.Clean(r.VertexShader) || path == filepath.Clean(r.FragmentShader))
}

// render is called each frame.
func (app *App) render() {
	now := time.Now()
	dt := float32(now.Sub(app.lastFrame).Seconds())
	app.lastFrame = now

	app.pollEvents()
	app.handleShortcuts()
	app.renderMenuBar()

	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()

	optionsWidth := float32(0)
	if app.showOptions {
		optionsWidth = 320
	}
	statusBarHeight := float32(30)
	contentHeight := workSize.Y - statusBarHeight
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(workPos)
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X-optionsWidth, contentHeight))
	if imgui.BeginV("Viewport", nil, flags|imgui.WindowFlagsNoScrollbar) {
		app.renderViewport(dt)
	}
	imgui.End()

	if app.showOptions {
		imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+workSize.X-optionsWidth, workPos.Y))
		imgui.SetNextWindowSize(imgui.NewVec2(optionsWidth, contentHeight))
		if imgui.BeginV("Options", nil, flags) {
			app.renderOptions()
		}
		imgui.End()
	}

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X, workPos.Y+contentHeight))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X, statusBarHeight))
	if imgui.BeginV("##StatusBar", nil, flags|imgui.WindowFlagsNoTitleBar|imgui.WindowFlagsNoScrollbar) {
		app.renderStatusBar()
	}
	imgui.End()
}
