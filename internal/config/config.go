// Package config provides layered configuration loading for the photomat
// kiosk service. Defaults are overlaid with PHOTOMAT_* environment
// variables and the merged result is validated before use.
package config

import (
	"fmt"
	"net"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/photomat/photomat/internal/encoder"
)

// envPrefix namespaces all environment variables consumed by the service.
const envPrefix = "PHOTOMAT_"

// Config holds the merged runtime configuration for a kiosk station.
type Config struct {
	Addr    string `koanf:"addr" validate:"required,ip_port"`
	DataDir string `koanf:"data_dir" validate:"required,data_dir"`
	// BaseURL is the public origin phones reach when scanning the QR code.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Countdown is the number of one-second ticks before capture fires.
	Countdown int `koanf:"countdown" validate:"min=1,max=30"`
	// IdleTimeout is the inactivity window after which the kiosk UI
	// returns home and cancels any in-flight countdown.
	IdleTimeout time.Duration `koanf:"idle_timeout" validate:"required"`
	// RetainFor bounds the life of photos that are never delivered.
	RetainFor time.Duration `koanf:"retain_for" validate:"required"`

	Format       encoder.Format `koanf:"format" validate:"image_format"`
	Quality      int            `koanf:"quality" validate:"min=1,max=100"`
	MirrorStills bool           `koanf:"mirror_stills"`
	Portrait     bool           `koanf:"portrait"`

	// CamWidth and CamHeight are the sensor geometry: the dimensions of
	// the frames the camera produces, landscape on every supported
	// device. Portrait rotation happens at encode time; do not pre-swap
	// these for a portrait display.
	CamWidth  int `koanf:"cam_width" validate:"min=1"`
	CamHeight int `koanf:"cam_height" validate:"min=1"`

	// MaxBytes caps uploaded photo payloads on the delivery API.
	MaxBytes int64 `koanf:"max_bytes" validate:"min=1"`

	// UplinkURL, when set, is the remote delivery endpoint captured photos
	// are handed off to. Empty disables the uplink (the local store still
	// serves downloads).
	UplinkURL string `koanf:"uplink_url" validate:"omitempty,url"`

	// MetricsToken guards the metrics snapshot endpoint when non-empty.
	MetricsToken string `koanf:"metrics_token"`
}

// DefaultAppConfig mirrors the reviewed kiosk deployment: portrait display
// fed by a 1920x1080 landscape sensor, five-second countdown, 60-second
// idle window, JPEG stills at visually-lossless quality.
var DefaultAppConfig = Config{
	Addr:        ":8080",
	DataDir:     "./data",
	BaseURL:     "http://localhost:8080",
	Countdown:   5,
	IdleTimeout: 60 * time.Second,
	RetainFor:   time.Hour,
	Format:      encoder.FormatJPEG,
	Quality:     90,
	Portrait:    true,
	CamWidth:    1920,
	CamHeight:   1080,
	MaxBytes:    8 << 20, // 8 MiB
}

// Load merges defaults with environment variables and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				StringToImageFormat(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate runs struct validation with the custom rules registered.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	if err := v.RegisterValidation("data_dir", validDataDir); err != nil {
		return err
	}
	if err := v.RegisterValidation("image_format", validImageFormat); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validIPPort accepts ":8080" or "ip:port" forms with a numeric port.
func validIPPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil || port == "" {
		return false
	}
	if _, err := strconv.Atoi(port); err != nil {
		return false
	}
	if host == "" { // ":8080" binds all interfaces
		return true
	}
	return net.ParseIP(host) != nil
}

// validDataDir rejects empty, root, and traversal-bearing paths. Relative
// paths are allowed; they resolve against the working directory at start.
func validDataDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || p == "." {
		return false
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}
	for _, seg := range strings.Split(strings.TrimPrefix(clean, "/"), "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

func validImageFormat(fl validator.FieldLevel) bool {
	return encoder.Format(fl.Field().String()).Valid()
}
