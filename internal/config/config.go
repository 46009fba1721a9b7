// README: Config loader with env defaults for the channel, REST API, depot, and reporting settings.
package config

import (
	"os"
	"strconv"
	"time"
)

type ConnConfig struct {
	SocketURL    string
	BackoffFloor time.Duration
	BackoffCap   time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	API struct {
		BaseURL string
	}
	Redis struct {
		Addr string
	}
	Conn  ConnConfig
	Depot struct {
		Lat float64
		Lng float64
	}
	Location struct {
		GoogleKey        string
		ReportsPerMinute float64
	}
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("VALET_HTTP_ADDR", ":8090")
	cfg.API.BaseURL = envOrDefault("VALET_API_BASE", "http://localhost:8080")
	cfg.Redis.Addr = envOrDefault("VALET_REDIS_ADDR", "localhost:6379")
	cfg.Conn.SocketURL = envOrDefault("VALET_SOCKET_URL", "ws://localhost:8080/channel")
	cfg.Conn.BackoffFloor = time.Duration(envOrDefaultInt("VALET_BACKOFF_FLOOR_MS", 1000)) * time.Millisecond
	cfg.Conn.BackoffCap = time.Duration(envOrDefaultInt("VALET_BACKOFF_CAP_MS", 5000)) * time.Millisecond
	cfg.Depot.Lat = envOrDefaultFloat("VALET_DEPOT_LAT", 17.530411)
	cfg.Depot.Lng = envOrDefaultFloat("VALET_DEPOT_LNG", 78.440178)
	cfg.Location.GoogleKey = envOrDefault("VALET_GOOGLE_MAPS_KEY", "")
	cfg.Location.ReportsPerMinute = envOrDefaultFloat("VALET_LOCATION_RPM", 12)
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}
