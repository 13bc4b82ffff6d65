package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Bandwidth struct {
	Audio int `mapstructure:"audio"`
	Video int `mapstructure:"video"`
	Data  int `mapstructure:"data"`
}

type Config struct {
	APIBase     string    `mapstructure:"api_base"`
	APIKey      string    `mapstructure:"api_key"`
	Room        string    `mapstructure:"room"`
	Region      string    `mapstructure:"region"`
	Username    string    `mapstructure:"username"`
	Stereo      bool      `mapstructure:"stereo"`
	DataChannel bool      `mapstructure:"data_channel"`
	Bandwidth   Bandwidth `mapstructure:"bandwidth"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("api_base", "http://localhost:8080")
	v.SetDefault("room", "main")
	v.SetDefault("username", "guest")
	v.SetDefault("stereo", false)
	v.SetDefault("data_channel", true)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Room: %s | API: %s | Region: %s\n", cfg.Room, cfg.APIBase, cfg.Region)
	return &cfg, nil
}
