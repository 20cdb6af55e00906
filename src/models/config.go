package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	Storage   MStorageConfig   `yaml:"storage"`
	Transport MTransportConfig `yaml:"transport"`
	Render    MRenderConfig    `yaml:"render"`
	Chart     MChartConfig     `yaml:"chart"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres, redis
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
}

type MTransportConfig struct {
	URL                  string `yaml:"url"`
	AckTimeoutMs         int    `yaml:"ack_timeout_ms"`
	ReconnectBaseDelayMs int    `yaml:"reconnect_base_delay_ms"`
	ReconnectMaxDelayMs  int    `yaml:"reconnect_max_delay_ms"`
	HandshakeTimeoutMs   int    `yaml:"handshake_timeout_ms"`
	ReadTimeoutSeconds   int    `yaml:"read_timeout_seconds"`
	PingIntervalSeconds  int    `yaml:"ping_interval_seconds"`
}

type MRenderConfig struct {
	FrameIntervalMs    int `yaml:"frame_interval_ms" json:"frame_interval_ms"`
	MinFlushIntervalMs int `yaml:"min_flush_interval_ms" json:"min_flush_interval_ms"`
}

type MChartConfig struct {
	WindowSize   int    `yaml:"window_size" json:"window_size"`
	HistorySeed  int    `yaml:"history_seed" json:"history_seed"`
	ListLimit    int    `yaml:"list_limit" json:"list_limit"`
	TimeLocation string `yaml:"time_location" json:"time_location"` // IANA name, empty = Local
}
