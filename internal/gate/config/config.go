package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Listen is the address the HTTP gateway binds to.
	Listen string `koanf:"listen" validate:"required,listen_addr"`

	// DataDir is where the bbolt databases live.
	DataDir string `koanf:"data_dir" validate:"required"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// CacheSize caps the verdict cache. Zero disables caching.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// SweepIntervalSeconds is how often expired timers are purged.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds" validate:"required,gte=1"`

	// BlockedPage is the URL blocked navigations are redirected to.
	BlockedPage string `koanf:"blocked_page" validate:"required,url"`

	// MatchMode selects rule matching: "exact" origins only, or "suffix"
	// to make rules cover subdomains of their host.
	MatchMode string `koanf:"match_mode" validate:"required,oneof=exact suffix"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Listen:               "127.0.0.1:8617",
	DataDir:              "/var/lib/sitegate/",
	Env:                  "prod",
	LogLevel:             "info",
	CacheSize:            1000,
	SweepIntervalSeconds: 60,
	BlockedPage:          "http://127.0.0.1:8617/blocked",
	MatchMode:            "exact",
}

// validListenAddr accepts "host:port" where host may be empty (all
// interfaces), an IP, or a hostname, and port is in range.
func validListenAddr(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		// Hostnames are allowed; reject ones with spaces or slashes.
		if strings.ContainsAny(host, " /") {
			return false
		}
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables with the prefix "GATE_",
// lowercasing keys and stripping the prefix. Mockable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "GATE_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "GATE_"))
			value = strings.TrimSpace(value)
			return key, value
		},
	}), nil)
}

// defaultLoader loads default values using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation wires the custom listen_addr rule.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("listen_addr", validListenAddr)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
