package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for errors and returns all of them.
func (c *Config) Validate() []error {
	var errors []error

	if c.GeoRef.Lat < -90 || c.GeoRef.Lat > 90 {
		errors = append(errors, fmt.Errorf("geo_ref.lat must be within -90..90, got %v", c.GeoRef.Lat))
	}
	if c.GeoRef.Long < -180 || c.GeoRef.Long > 180 {
		errors = append(errors, fmt.Errorf("geo_ref.long must be within -180..180, got %v", c.GeoRef.Long))
	}

	if len(c.Consumption.Curve) < 2 {
		errors = append(errors, fmt.Errorf("consumption.curve needs at least 2 control points, got %d", len(c.Consumption.Curve)))
	}
	if c.Consumption.MaxAvgLoad < c.Consumption.MinAvgLoad {
		errors = append(errors, fmt.Errorf("consumption.max_avg_load (%v) is below consumption.min_avg_load (%v)",
			c.Consumption.MaxAvgLoad, c.Consumption.MinAvgLoad))
	}

	if c.Production.PanelPower <= 0 {
		errors = append(errors, fmt.Errorf("production.panel_power must be positive"))
	}
	if c.Production.Tau <= 0 || c.Production.TauDown <= 0 {
		errors = append(errors, fmt.Errorf("production.tau and production.tau_down must be positive"))
	}

	if c.Charge.SocKwh <= 0 {
		errors = append(errors, fmt.Errorf("charge.soc_kwh must be positive"))
	}
	if c.Charge.ChargeEfficiency <= 0 || c.Charge.ChargeEfficiency > 1 {
		errors = append(errors, fmt.Errorf("charge.charge_efficiency must be within (0,1], got %v", c.Charge.ChargeEfficiency))
	}
	if c.Charge.DischargeEfficiency <= 0 || c.Charge.DischargeEfficiency > 1 {
		errors = append(errors, fmt.Errorf("charge.discharge_efficiency must be within (0,1], got %v", c.Charge.DischargeEfficiency))
	}

	if c.FoxESS.APIKey == "" {
		errors = append(errors, fmt.Errorf("fox_ess.api_key is required"))
	} else if len(c.FoxESS.APIKey) < 10 {
		errors = append(errors, fmt.Errorf("fox_ess.api_key is too short (got %s)", maskSecret(c.FoxESS.APIKey)))
	}
	if c.FoxESS.InverterSN == "" {
		errors = append(errors, fmt.Errorf("fox_ess.inverter_sn is required"))
	}

	if c.Forecast.Host == "" {
		errors = append(errors, fmt.Errorf("forecast.host is required"))
	}
	if c.Forecast.Port <= 0 || c.Forecast.Port > 65535 {
		errors = append(errors, fmt.Errorf("forecast.port must be within 1..65535, got %d", c.Forecast.Port))
	}

	if c.Mail.SMTPEndpoint == "" {
		errors = append(errors, fmt.Errorf("mail.smtp_endpoint is required"))
	}
	if c.Mail.From == "" || c.Mail.To == "" {
		errors = append(errors, fmt.Errorf("mail.from and mail.to are required"))
	}

	if c.Files.ScheduleDir == "" {
		errors = append(errors, fmt.Errorf("files.schedule_dir is required"))
	}
	if c.Files.BaseDataDir == "" {
		errors = append(errors, fmt.Errorf("files.base_data_dir is required"))
	}
	if c.Files.ConsDiagram == "" {
		errors = append(errors, fmt.Errorf("files.cons_diagram is required"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.General.LogLevel)] {
		errors = append(errors, fmt.Errorf("invalid general.log_level: %s (expected: debug, info, warn, error)", c.General.LogLevel))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.General.LogFormat)] {
		errors = append(errors, fmt.Errorf("invalid general.log_format: %s (expected: json, text)", c.General.LogFormat))
	}

	return errors
}
