package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Telegram: TelegramConfig{
			Token: "${MODERBOT_TOKEN}",
		},
		Moderation: ModerationConfig{
			Threshold:       10,
			RestrictMinutes: 60,
		},
		Storage: StorageConfig{
			DBPath: "~/.moderbot/ledger.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9091",
			Endpoint: "/metrics",
		},
	}
}
