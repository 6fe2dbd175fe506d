package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	LayerLocal = "local"
	LayerRedis = "redis"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Relay      Relay  `yaml:"relay"`
	Client     Client `yaml:"client"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Relay configures the room relay server. Layer selects how room broadcasts
// are fanned out: "local" for one process, "redis" for several.
type Relay struct {
	Layer string `yaml:"layer" env:"RELAY_LAYER" env-default:"local"`
}

// Client configures the player-side session channel.
type Client struct {
	ServerURL      string        `yaml:"server-url" env:"SERVER_URL" env-default:"ws://localhost:9091"`
	ConnectTimeout time.Duration `yaml:"connect-timeout" env:"CONNECT_TIMEOUT" env-default:"10s"`
	Username       string        `yaml:"username" env:"QUIZ_USERNAME" env-default:""`
	PrefsDir       string        `yaml:"prefs-dir" env:"PREFS_DIR" env-default:".instantmusic"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
