package web

import (
	"sync/atomic"
	"time"

	"lsm303-ng/internal/compass"
)

// CompassSource is the read side of compass.Service.
type CompassSource interface {
	Snapshot() compass.Snapshot
}

type Status struct {
	startUnixNano   int64
	published       uint64
	publishErrors   uint64
	lastPublishNano int64
	bus             atomic.Value // string
	udpDest         atomic.Value // string
	sim             atomic.Bool
	source          atomic.Value // CompassSource
	lastError       atomic.Value // string
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.bus.Store("")
	s.udpDest.Store("")
	s.lastError.Store("")
	return s
}

// SetStatic records facts fixed at startup.
func (s *Status) SetStatic(bus, udpDest string, sim bool) {
	if bus != "" {
		s.bus.Store(bus)
	}
	if udpDest != "" {
		s.udpDest.Store(udpDest)
	}
	s.sim.Store(sim)
}

func (s *Status) SetSource(src CompassSource) {
	if src != nil {
		s.source.Store(src)
	}
}

// MarkPublished counts one UDP datagram attempt.
func (s *Status) MarkPublished(nowUTC time.Time, err error) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	if err != nil {
		atomic.AddUint64(&s.publishErrors, 1)
		s.lastError.Store(err.Error())
		return
	}
	atomic.AddUint64(&s.published, 1)
	atomic.StoreInt64(&s.lastPublishNano, nowUTC.UnixNano())
}

type StatusSnapshot struct {
	Service        string            `json:"service"`
	NowUTC         string            `json:"now_utc"`
	UptimeSec      int64             `json:"uptime_sec"`
	Bus            string            `json:"bus"`
	Sim            bool              `json:"sim"`
	UDPDest        string            `json:"udp_dest,omitempty"`
	PublishedTotal uint64            `json:"published_total"`
	PublishErrors  uint64            `json:"publish_errors"`
	LastPublishUTC string            `json:"last_publish_utc,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	Compass        *compass.Snapshot `json:"compass,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:        serviceName,
		NowUTC:         nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:      int64(nowUTC.Sub(start).Seconds()),
		Bus:            s.bus.Load().(string),
		Sim:            s.sim.Load(),
		UDPDest:        s.udpDest.Load().(string),
		PublishedTotal: atomic.LoadUint64(&s.published),
		PublishErrors:  atomic.LoadUint64(&s.publishErrors),
		LastError:      s.lastError.Load().(string),
	}
	if last := atomic.LoadInt64(&s.lastPublishNano); last != 0 {
		snap.LastPublishUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	if src, ok := s.source.Load().(CompassSource); ok {
		c := src.Snapshot()
		snap.Compass = &c
	}
	return snap
}
