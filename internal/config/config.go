package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lsm303-ng/internal/sensors/lsm303"
	"lsm303-ng/internal/vector"
)

type Config struct {
	Bus         BusConfig          `yaml:"bus"`
	Device      DeviceConfig       `yaml:"device"`
	Calibration *CalibrationConfig `yaml:"calibration"`
	Heading     HeadingConfig      `yaml:"heading"`
	UDP         UDPConfig          `yaml:"udp"`
	Web         WebConfig          `yaml:"web"`
	Sim         SimConfig          `yaml:"sim"`
}

type BusConfig struct {
	// Kind selects the transport: "dev" (/dev/i2c-N), "periph" or "sim".
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	Name    string `yaml:"name"`
	SpeedHz int64  `yaml:"speed_hz"`
}

type DeviceConfig struct {
	Variant string `yaml:"variant"`
	SA0     string `yaml:"sa0"`
	// Timeout bounds each register read. 0 waits forever; absent means 100ms.
	Timeout       *time.Duration `yaml:"timeout"`
	MagGain       string         `yaml:"mag_gain"`
	EnableDefault *bool          `yaml:"enable_default"`
	SA0GPIO       GPIOConfig     `yaml:"sa0_gpio"`
}

// GPIOConfig drives the SA0 pin from a GPIO line before the bus is probed.
type GPIOConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
}

// CalibrationConfig seeds the magnetometer extremes, e.g. from a previous
// run's status output.
type CalibrationConfig struct {
	Min vector.Vector[int16] `yaml:"min"`
	Max vector.Vector[int16] `yaml:"max"`
}

type HeadingConfig struct {
	Interval       time.Duration           `yaml:"interval"`
	From           *vector.Vector[float64] `yaml:"from"`
	DeclinationDeg float64                 `yaml:"declination_deg"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
	Format string `yaml:"format"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// SimConfig describes the simulated chip used when bus.kind is "sim". The
// simulated sensor sits level and turns through a full circle every Period.
type SimConfig struct {
	Variant string        `yaml:"variant"`
	SA0     string        `yaml:"sa0"`
	Period  time.Duration `yaml:"period"`
	// DipDeg is the field inclination; absent means 60, 0 is a horizontal field.
	DipDeg *float64 `yaml:"dip_deg"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	switch cfg.Bus.Kind {
	case "":
		cfg.Bus.Kind = "dev"
	case "dev", "periph", "sim":
	default:
		return Config{}, fmt.Errorf("bus.kind must be one of dev, periph, sim")
	}
	if cfg.Bus.Kind == "dev" && cfg.Bus.Path == "" {
		cfg.Bus.Path = "/dev/i2c-1"
	}
	if cfg.Bus.SpeedHz < 0 {
		return Config{}, fmt.Errorf("bus.speed_hz must be >= 0")
	}

	if cfg.Device.Variant == "" {
		cfg.Device.Variant = "auto"
	}
	if _, err := lsm303.ParseVariant(cfg.Device.Variant); err != nil {
		return Config{}, fmt.Errorf("device.variant must be one of auto, dlh, dlm, dlhc, d")
	}
	if cfg.Device.SA0 == "" {
		cfg.Device.SA0 = "auto"
	}
	sa0, err := lsm303.ParseSA0(cfg.Device.SA0)
	if err != nil {
		return Config{}, fmt.Errorf("device.sa0 must be one of auto, low, high")
	}
	if cfg.Device.Timeout == nil {
		timeout := 100 * time.Millisecond
		cfg.Device.Timeout = &timeout
	}
	if *cfg.Device.Timeout < 0 {
		return Config{}, fmt.Errorf("device.timeout must be >= 0")
	}
	if cfg.Device.MagGain != "" {
		if _, err := lsm303.ParseMagGain(cfg.Device.MagGain); err != nil {
			return Config{}, fmt.Errorf("device.mag_gain must be one of 1.3, 1.9, 2.5, 4.0, 4.7, 5.6, 8.1")
		}
	}
	if cfg.Device.EnableDefault == nil {
		enable := true
		cfg.Device.EnableDefault = &enable
	}
	if cfg.Device.SA0GPIO.Enable {
		if sa0 == lsm303.SA0Auto {
			return Config{}, fmt.Errorf("device.sa0_gpio requires device.sa0 to be low or high")
		}
		if cfg.Device.SA0GPIO.Chip == "" {
			cfg.Device.SA0GPIO.Chip = "gpiochip0"
		}
		if cfg.Device.SA0GPIO.Line < 0 {
			return Config{}, fmt.Errorf("device.sa0_gpio.line must be >= 0")
		}
	}

	if c := cfg.Calibration; c != nil {
		if c.Min.X > c.Max.X || c.Min.Y > c.Max.Y || c.Min.Z > c.Max.Z {
			return Config{}, fmt.Errorf("calibration.min must not exceed calibration.max")
		}
	}

	if cfg.Heading.Interval < 0 {
		return Config{}, fmt.Errorf("heading.interval must be > 0")
	}
	if cfg.Heading.Interval == 0 {
		cfg.Heading.Interval = 100 * time.Millisecond
	}
	if f := cfg.Heading.From; f != nil && *f == (vector.Vector[float64]{}) {
		return Config{}, fmt.Errorf("heading.from must be a non-zero vector")
	}

	if cfg.UDP.Enable && cfg.UDP.Dest == "" {
		return Config{}, fmt.Errorf("udp.dest is required when udp.enable is true")
	}
	switch cfg.UDP.Format {
	case "":
		cfg.UDP.Format = "json"
	case "json", "cbor":
	default:
		return Config{}, fmt.Errorf("udp.format must be one of json, cbor")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	// Simulator defaults (safe even if the bus is real).
	if cfg.Sim.Variant == "" {
		cfg.Sim.Variant = "dlhc"
	}
	if cfg.Sim.SA0 == "" {
		cfg.Sim.SA0 = "high"
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 20 * time.Second
	}
	if cfg.Sim.DipDeg == nil {
		dip := 60.0
		cfg.Sim.DipDeg = &dip
	}
	if d := *cfg.Sim.DipDeg; d < -90 || d > 90 {
		return Config{}, fmt.Errorf("sim.dip_deg must be within [-90, 90]")
	}
	if cfg.Bus.Kind == "sim" {
		if v, err := lsm303.ParseVariant(cfg.Sim.Variant); err != nil || v == lsm303.VariantAuto {
			return Config{}, fmt.Errorf("sim.variant must be one of dlh, dlm, dlhc, d")
		}
		if s, err := lsm303.ParseSA0(cfg.Sim.SA0); err != nil || s == lsm303.SA0Auto {
			return Config{}, fmt.Errorf("sim.sa0 must be low or high")
		}
	}

	return cfg, nil
}
