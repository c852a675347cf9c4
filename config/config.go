package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chaos-io/cutout/matting"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Model   ModelConfig   `mapstructure:"model"`
	Matting MattingConfig `mapstructure:"matting"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	QueueTimeout   time.Duration `mapstructure:"queue_timeout"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ModelConfig struct {
	// Backend: remote | alpha
	Backend      string        `mapstructure:"backend"`
	BaseURL      string        `mapstructure:"base_url"`
	Variants     []string      `mapstructure:"variants"`
	Timeout      time.Duration `mapstructure:"timeout"`
	WarmSchedule string        `mapstructure:"warm_schedule"`
}

type MattingConfig struct {
	AlphaThreshold          int     `mapstructure:"alpha_threshold"`
	GaussianSigma           float64 `mapstructure:"gaussian_sigma"`
	KernelSize              int     `mapstructure:"kernel_size"`
	MinRegionAbsolute       int     `mapstructure:"min_region_absolute"`
	MinRegionRatioOfTotal   float64 `mapstructure:"min_region_ratio_of_total"`
	MinRegionRatioOfLargest float64 `mapstructure:"min_region_ratio_of_largest"`
	MatteSampleRadius       int     `mapstructure:"matte_sample_radius"`
	ChromaKeyTolerance      float64 `mapstructure:"chroma_key_tolerance"`
}

// Params 转换为管线参数（不含背景色与色键，这两项按请求传入）
func (c MattingConfig) Params() matting.Params {
	return matting.Params{
		AlphaThreshold:          c.AlphaThreshold,
		GaussianSigma:           c.GaussianSigma,
		KernelSize:              c.KernelSize,
		MinRegionAbsolute:       c.MinRegionAbsolute,
		MinRegionRatioOfTotal:   c.MinRegionRatioOfTotal,
		MinRegionRatioOfLargest: c.MinRegionRatioOfLargest,
		MatteSampleRadius:       c.MatteSampleRadius,
		ChromaKeyTolerance:      c.ChromaKeyTolerance,
	}
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CUTOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Matting.Params().Validate(); err != nil {
		return nil, fmt.Errorf("matting config: %w", err)
	}

	return &cfg, nil
}

// New 加载配置，文件不存在时使用默认配置，其余错误（解析失败、参数非法）直接返回
func New(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound) {
			return getDefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.max_concurrent", d.Server.MaxConcurrent)
	v.SetDefault("server.queue_timeout", d.Server.QueueTimeout)
	v.SetDefault("server.process_timeout", d.Server.ProcessTimeout)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("model.backend", d.Model.Backend)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.variants", d.Model.Variants)
	v.SetDefault("model.timeout", d.Model.Timeout)
	v.SetDefault("model.warm_schedule", d.Model.WarmSchedule)

	v.SetDefault("matting.alpha_threshold", d.Matting.AlphaThreshold)
	v.SetDefault("matting.gaussian_sigma", d.Matting.GaussianSigma)
	v.SetDefault("matting.kernel_size", d.Matting.KernelSize)
	v.SetDefault("matting.min_region_absolute", d.Matting.MinRegionAbsolute)
	v.SetDefault("matting.min_region_ratio_of_total", d.Matting.MinRegionRatioOfTotal)
	v.SetDefault("matting.min_region_ratio_of_largest", d.Matting.MinRegionRatioOfLargest)
	v.SetDefault("matting.matte_sample_radius", d.Matting.MatteSampleRadius)
	v.SetDefault("matting.chroma_key_tolerance", d.Matting.ChromaKeyTolerance)
}

func getDefaultConfig() *Config {
	p := matting.DefaultParams()
	return &Config{
		Server: ServerConfig{
			Port:           ":8080",
			Mode:           "debug",
			MaxConcurrent:  3,
			QueueTimeout:   30 * time.Second,
			ProcessTimeout: 60 * time.Second,
		},
		Upload: UploadConfig{
			MaxSize: 10 * 1024 * 1024,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
			TTL:     24 * time.Hour,
		},
		Model: ModelConfig{
			Backend:      "remote",
			BaseURL:      "http://127.0.0.1:8188/",
			Variants:     []string{"isnet-general-use", "RMBG-1.4"},
			Timeout:      30 * time.Second,
			WarmSchedule: "@every 10m",
		},
		Matting: MattingConfig{
			AlphaThreshold:          p.AlphaThreshold,
			GaussianSigma:           p.GaussianSigma,
			KernelSize:              p.KernelSize,
			MinRegionAbsolute:       p.MinRegionAbsolute,
			MinRegionRatioOfTotal:   p.MinRegionRatioOfTotal,
			MinRegionRatioOfLargest: p.MinRegionRatioOfLargest,
			MatteSampleRadius:       p.MatteSampleRadius,
			ChromaKeyTolerance:      p.ChromaKeyTolerance,
		},
	}
}
