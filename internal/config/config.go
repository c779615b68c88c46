// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Camera  CameraConfig  `yaml:"camera"`
	Scene   SceneConfig   `yaml:"scene"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	VSync  bool   `yaml:"vsync"`
}

// CameraConfig holds lens and camera settings.
type CameraConfig struct {
	Mode        string     `yaml:"mode"` // "fly" or "orbit"
	FOV         float32    `yaml:"fov"`  // degrees
	Near        float32    `yaml:"near"`
	Far         float32    `yaml:"far"`
	Position    [3]float32 `yaml:"position"`
	Speed       float32    `yaml:"speed"`       // units per second
	Sensitivity float32    `yaml:"sensitivity"` // degrees per viewport width dragged
	FastFactor  float32    `yaml:"fast_factor"` // speed multiplier while Shift is held
}

// SceneConfig holds asset loading settings.
type SceneConfig struct {
	Model          string `yaml:"model"`
	GRFPath        string `yaml:"grf_path"` // optional archive used as the asset source
	FlipTextureV   bool   `yaml:"flip_texture_v"`
	Normalize      bool   `yaml:"normalize"`
	MaxTextureSize int    `yaml:"max_texture_size"` // 0 disables downscaling
	Watch          bool   `yaml:"watch"`
}

// RenderConfig holds shading settings.
type RenderConfig struct {
	Shader         string     `yaml:"shader"` // "default" or "depth"
	ClearColor     [3]float32 `yaml:"clear_color"`
	Lighting       bool       `yaml:"lighting"`
	CullFaces      bool       `yaml:"cull_faces"`
	ShowBounds     bool       `yaml:"show_bounds"`
	Shininess      float32    `yaml:"shininess"`
	LightDirection [3]float32 `yaml:"light_direction"`
	LightColor     [3]float32 `yaml:"light_color"`
	// Optional GLSL files replacing the default program, reloaded on change.
	VertexShader   string `yaml:"vertex_shader"`
	FragmentShader string `yaml:"fragment_shader"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "meshview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			Mode:        "fly",
			FOV:         45,
			Near:        0.1,
			Far:         100,
			Position:    [3]float32{0, 0, 2},
			Speed:       2.5,
			Sensitivity: 100,
			FastFactor:  4,
		},
		Scene: SceneConfig{
			FlipTextureV:   true,
			Normalize:      true,
			MaxTextureSize: 2048,
		},
		Render: RenderConfig{
			Shader:         "default",
			ClearColor:     [3]float32{0.5, 0.5, 0.5},
			Lighting:       true,
			CullFaces:      true,
			Shininess:      4,
			LightDirection: [3]float32{0, 0, 1},
			LightColor:     [3]float32{1, 1, 1},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
