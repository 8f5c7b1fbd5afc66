package config

// applyDefaults applies default values for optional configuration items.
func applyDefaults(c *Config) {
	if c.Charge.BatKwh == 0 {
		c.Charge.BatKwh = 14.931
	}
	if c.Charge.SocKwh == 0 {
		c.Charge.SocKwh = 0.1659
	}
	if c.Charge.ChargeKwhHour == 0 {
		c.Charge.ChargeKwhHour = 6.0
	}
	if c.Charge.ChargeEfficiency == 0 {
		c.Charge.ChargeEfficiency = 0.9
	}
	if c.Charge.DischargeEfficiency == 0 {
		c.Charge.DischargeEfficiency = 0.9
	}

	if c.Production.IAMFactor == 0 {
		c.Production.IAMFactor = 1.0
	}
	if c.Production.CloudImpactFactor == 0 {
		c.Production.CloudImpactFactor = 1.0
	}

	if c.Forecast.Port == 0 {
		c.Forecast.Port = 8080
	}

	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}
	if c.General.LogOutput == "" {
		c.General.LogOutput = "stdout"
	}

	// 23:00 daily mirrors the documented cron deployment.
	if c.Daemon.CronSpec == "" {
		c.Daemon.CronSpec = "0 23 * * *"
	}
	if c.Daemon.Timezone == "" {
		c.Daemon.Timezone = "Local"
	}
	if c.Daemon.MonitorIntervalMinutes == 0 {
		c.Daemon.MonitorIntervalMinutes = 5
	}
	if c.Daemon.MetricsListenAddr == "" {
		c.Daemon.MetricsListenAddr = ":9099"
	}
}
