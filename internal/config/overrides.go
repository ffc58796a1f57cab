package config

// FlagOverrides carries command-line overrides. A nil pointer means the flag
// was not set; a non-nil pointer is applied even when it holds a zero value.
type FlagOverrides struct {
	PollMs      *int
	HeartbeatMs *int
	LockMs      *int
	Broker      *string
	HTTPAddr    *string
	LogLevel    *string
	LogFormat   *string
	Motion      *bool
	MotionPin   *int
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.PollMs != nil {
		cfg.PollMs = *o.PollMs
	}
	if o.HeartbeatMs != nil {
		cfg.HeartbeatMs = *o.HeartbeatMs
	}
	if o.LockMs != nil {
		cfg.Classifier.LockMs = *o.LockMs
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
	if o.Motion != nil {
		cfg.Motion.Enabled = *o.Motion
	}
	if o.MotionPin != nil {
		cfg.Motion.Pin = *o.MotionPin
	}
}
