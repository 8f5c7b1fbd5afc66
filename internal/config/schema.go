// Package config provides configuration loading and validation for the
// mygrid scheduler. It supports TOML configuration files with environment
// variable expansion, default values, and comprehensive validation.
//
// Configuration structure:
//   - [geo_ref]: latitude/longitude of the installation
//   - [consumption]: household load model parameters
//   - [production]: PV panel, roof and obstacle parameters
//   - [charge]: battery capacity and charge characteristics
//   - [tariff_fees]: grid and trade fees applied on top of spot prices
//   - [fox_ess]: Fox Cloud API credentials
//   - [forecast]: weather forecast service endpoint
//   - [mail]: SMTP relay for run reports
//   - [files]: schedule/base data output directories and diagram file
//   - [general]: logging level, format, and output
//   - [daemon]: serve-mode cron schedule, monitor and metrics settings
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax. For example: api_key = "${FOX_API_KEY}"
package config

// Config represents the main application configuration.
type Config struct {
	GeoRef      GeoRefConfig      `toml:"geo_ref"`
	Consumption ConsumptionConfig `toml:"consumption"`
	Production  ProductionConfig  `toml:"production"`
	Charge      ChargeConfig      `toml:"charge"`
	TariffFees  TariffFeesConfig  `toml:"tariff_fees"`
	FoxESS      FoxESSConfig      `toml:"fox_ess"`
	Forecast    ForecastConfig    `toml:"forecast"`
	Mail        MailConfig        `toml:"mail"`
	Files       FilesConfig       `toml:"files"`
	General     GeneralConfig     `toml:"general"`
	Daemon      DaemonConfig      `toml:"daemon"`
}

// GeoRefConfig is the geographic position of the installation.
type GeoRefConfig struct {
	Lat  float64 `toml:"lat"`
	Long float64 `toml:"long"`
}

// ConsumptionConfig holds the household load model parameters.
// Curve is a list of [temperature, fraction] control points where the
// fraction 0..1 scales between MinAvgLoad and MaxAvgLoad.
type ConsumptionConfig struct {
	MinAvgLoad float64      `toml:"min_avg_load"`
	MaxAvgLoad float64      `toml:"max_avg_load"`
	Curve      [][2]float64 `toml:"curve"`

	// Diagram is loaded from the separate consumption diagram file and is
	// not part of the main TOML document.
	Diagram *Diagram `toml:"-"`
}

// ProductionConfig holds PV panel, roof thermal and obstacle parameters.
type ProductionConfig struct {
	PanelPower        float64      `toml:"panel_power"`
	PanelSlope        float64      `toml:"panel_slope"`
	PanelEastAzm      float64      `toml:"panel_east_azm"`
	PanelTempRed      float64      `toml:"panel_temp_red"`
	Tau               float64      `toml:"tau"`
	TauDown           float64      `toml:"tau_down"`
	KGain             float64      `toml:"k_gain"`
	IAMFactor         float64      `toml:"iam_factor"`
	StartAzmElv       [][2]float64 `toml:"start_azm_elv"`
	StopAzmElv        [][2]float64 `toml:"stop_azm_elv"`
	CloudImpactFactor float64      `toml:"cloud_impact_factor"`
	LowCloudsFactor   float64      `toml:"low_clouds_factor"`
	MidCloudsFactor   float64      `toml:"mid_clouds_factor"`
	HighCloudsFactor  float64      `toml:"high_clouds_factor"`
}

// ChargeConfig holds battery capacity and charge characteristics.
type ChargeConfig struct {
	BatKwh              float64 `toml:"bat_kwh"`
	SocKwh              float64 `toml:"soc_kwh"`
	ChargeKwhHour       float64 `toml:"charge_kwh_hour"`
	ChargeEfficiency    float64 `toml:"charge_efficiency"`
	DischargeEfficiency float64 `toml:"discharge_efficiency"`
}

// TariffFeesConfig holds grid and trade fees in öre/kWh (except
// SpotFeePercentage which is a percentage of the day average spot price
// and ProductionPrice which is the öre/kWh premium on sold energy).
type TariffFeesConfig struct {
	VariableFee           float64 `toml:"variable_fee"`
	SpotFeePercentage     float64 `toml:"spot_fee_percentage"`
	EnergyTax             float64 `toml:"energy_tax"`
	SwedishPowerGrid      float64 `toml:"swedish_power_grid"`
	BalanceResponsibility float64 `toml:"balance_responsibility"`
	ElectricCertificate   float64 `toml:"electric_certificate"`
	GuaranteesOfOrigin    float64 `toml:"guarantees_of_origin"`
	Fixed                 float64 `toml:"fixed"`
	ProductionPrice       float64 `toml:"production_price"`
}

// FoxESSConfig holds Fox Cloud API credentials.
type FoxESSConfig struct {
	APIKey     string `toml:"api_key"`
	InverterSN string `toml:"inverter_sn"`
}

// ForecastConfig holds the weather forecast service endpoint.
type ForecastConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MailConfig holds SMTP relay settings for run reports.
type MailConfig struct {
	SMTPUser     string `toml:"smtp_user"`
	SMTPPassword string `toml:"smtp_password"`
	SMTPEndpoint string `toml:"smtp_endpoint"`
	From         string `toml:"from"`
	To           string `toml:"to"`
}

// FilesConfig holds output directories and the consumption diagram path.
type FilesConfig struct {
	ScheduleDir string `toml:"schedule_dir"`
	BaseDataDir string `toml:"base_data_dir"`
	ConsDiagram string `toml:"cons_diagram"`
}

// GeneralConfig holds logging settings.
type GeneralConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogOutput string `toml:"log_output"`
}

// DaemonConfig holds serve-mode settings.
type DaemonConfig struct {
	CronSpec               string `toml:"cron_spec"`
	Timezone               string `toml:"timezone"`
	MonitorIntervalMinutes int    `toml:"monitor_interval_minutes"`
	MetricsListenAddr      string `toml:"metrics_listen_addr"`
}

// Diagram is the per-weekday hourly base load in watts, Monday first.
type Diagram [7][24]float64
