package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"lsm303-ng/internal/compass"
	"lsm303-ng/internal/config"
	"lsm303-ng/internal/gpio"
	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/i2c/i2csim"
	"lsm303-ng/internal/sensors/lsm303"
	"lsm303-ng/internal/udp"
	"lsm303-ng/internal/web"
)

// runtime owns everything between the bus and the outputs.
type runtime struct {
	busName string
	closers []io.Closer

	dev     *lsm303.Device
	compass *compass.Service
	motion  *simMotion
}

type busHandle struct {
	bus    lsm303.Bus
	name   string
	closer io.Closer
	chip   *lsm303.SimChip
}

// openBus opens the transport selected by cfg.Bus. For "sim" it also places
// a simulated chip on the bus.
func openBus(cfg config.Config) (busHandle, error) {
	switch cfg.Bus.Kind {
	case "sim":
		v, err := lsm303.ParseVariant(cfg.Sim.Variant)
		if err != nil {
			return busHandle{}, err
		}
		sa0, err := lsm303.ParseSA0(cfg.Sim.SA0)
		if err != nil {
			return busHandle{}, err
		}
		bus := i2csim.New()
		chip, err := lsm303.NewSimChip(bus, v, sa0)
		if err != nil {
			return busHandle{}, err
		}
		return busHandle{bus: bus, name: fmt.Sprintf("sim(%v, sa0=%v)", v, sa0), chip: chip}, nil
	case "periph":
		pb, err := i2c.OpenPeriph(cfg.Bus.Name, cfg.Bus.SpeedHz)
		if err != nil {
			return busHandle{}, err
		}
		return busHandle{bus: i2c.NewWire(pb), name: pb.String(), closer: pb}, nil
	default:
		b, err := i2c.Open(cfg.Bus.Path)
		if err != nil {
			return busHandle{}, err
		}
		return busHandle{bus: i2c.NewWire(b), name: b.String(), closer: b}, nil
	}
}

func newRuntime(ctx context.Context, cfg config.Config, status *web.Status) (*runtime, error) {
	return newRuntimeWithClock(ctx, cfg, status, clock.New())
}

func newRuntimeWithClock(ctx context.Context, cfg config.Config, status *web.Status, clk clock.Clock) (rt *runtime, err error) {
	rt = &runtime{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()

	variant, err := lsm303.ParseVariant(cfg.Device.Variant)
	if err != nil {
		return rt, err
	}
	sa0, err := lsm303.ParseSA0(cfg.Device.SA0)
	if err != nil {
		return rt, err
	}

	if g := cfg.Device.SA0GPIO; g.Enable {
		level := 0
		if sa0 == lsm303.SA0High {
			level = 1
		}
		pin, err := gpio.OpenOutput(g.Chip, g.Line, level)
		if err != nil {
			return rt, fmt.Errorf("sa0 gpio: %w", err)
		}
		rt.closers = append(rt.closers, pin)
		log.Printf("sa0 gpio=%s level=%d", pin, level)
	}

	h, err := openBus(cfg)
	if err != nil {
		return rt, fmt.Errorf("open bus: %w", err)
	}
	if h.closer != nil {
		rt.closers = append(rt.closers, h.closer)
	}
	rt.busName = h.name

	dev := lsm303.New(h.bus, lsm303.WithClock(clk), lsm303.WithTimeout(*cfg.Device.Timeout))
	if err := dev.Init(variant, sa0); err != nil {
		return rt, fmt.Errorf("lsm303 init on %s: %w (last status: %v)", h.name, err, dev.LastStatus())
	}
	acc, mag := dev.Addresses()
	log.Printf("lsm303 variant=%v acc=0x%02X mag=0x%02X bus=%s", dev.Variant(), acc, mag, h.name)
	rt.dev = dev

	if *cfg.Device.EnableDefault {
		if err := dev.EnableDefault(); err != nil {
			return rt, err
		}
	}
	if cfg.Device.MagGain != "" {
		g, err := lsm303.ParseMagGain(cfg.Device.MagGain)
		if err != nil {
			return rt, err
		}
		if err := dev.SetMagGain(g); errors.Is(err, lsm303.ErrGainUnsupported) {
			log.Printf("lsm303 mag_gain=%s ignored: %v", g, err)
		} else if err != nil {
			return rt, err
		}
	}
	if c := cfg.Calibration; c != nil {
		dev.SetCalibration(lsm303.Calibration{Min: c.Min, Max: c.Max})
	}

	if h.chip != nil {
		rt.motion = newSimMotion(h.chip, cfg.Sim.Period, *cfg.Sim.DipDeg, clk)
		rt.motion.Step()
		go rt.motion.Run(ctx)
	}

	var pub *udp.Publisher
	udpDest := ""
	if cfg.UDP.Enable {
		enc, err := udp.EncoderFor(cfg.UDP.Format)
		if err != nil {
			return rt, err
		}
		bc, err := udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			return rt, err
		}
		rt.closers = append(rt.closers, bc)
		pub = udp.NewPublisher(bc, enc)
		udpDest = cfg.UDP.Dest
		log.Printf("udp dest=%s format=%s", cfg.UDP.Dest, cfg.UDP.Format)
	}

	ccfg := compass.Config{
		Interval:       cfg.Heading.Interval,
		DeclinationDeg: cfg.Heading.DeclinationDeg,
		Clock:          clk,
	}
	if cfg.Heading.From != nil {
		ccfg.From = *cfg.Heading.From
	}
	if pub != nil {
		var lastErr string
		ccfg.OnSample = func(s compass.Snapshot) {
			err := pub.Publish(s)
			status.MarkPublished(clk.Now().UTC(), err)
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			if msg != lastErr {
				if err != nil {
					log.Printf("udp publish failed: %v", err)
				} else {
					log.Printf("udp publish recovered")
				}
				lastErr = msg
			}
		}
	}
	rt.compass = compass.New(dev, ccfg)
	if err := rt.compass.Start(ctx); err != nil {
		return rt, err
	}

	status.SetStatic(h.name, udpDest, h.chip != nil)
	status.SetSource(rt.compass)
	log.Printf("heading interval=%s declination_deg=%.1f", ccfg.Interval, ccfg.DeclinationDeg)
	return rt, nil
}

// Close stops sampling and releases the bus, the UDP socket and the SA0
// line, in reverse order of acquisition.
func (r *runtime) Close() error {
	if r == nil {
		return nil
	}
	if r.compass != nil {
		r.compass.Close()
	}
	if r.motion != nil {
		r.motion.Close()
	}

	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	r.closers = nil
	return err
}
