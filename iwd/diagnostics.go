package iwd

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// StationDiagnostics exposes link diagnostics of a connected station.
type StationDiagnostics struct {
	h bus.Handle
}

func (d StationDiagnostics) Path() dbus.ObjectPath { return d.h.Path() }

// ActiveStationDiagnostics describes the current connection. Optional fields are
// nil when the driver does not report them.
type ActiveStationDiagnostics struct {
	ConnectedBss string
	Frequency    uint32
	Channel      uint16
	Security     Security

	RSSI           *int16
	AverageRSSI    *int16
	RxMode         *PhyMode
	RxRateKbps     *uint64
	RxMCS          *uint8
	TxMode         *PhyMode
	TxRateKbps     *uint64
	TxMCS          *uint8
	PairwiseCipher *Cipher
	InactiveTime   *time.Duration
	ConnectedTime  *time.Duration
}

// GetDiagnostics fetches the diagnostics of the active connection.
func (d StationDiagnostics) GetDiagnostics(ctx context.Context) (ActiveStationDiagnostics, error) {
	r, err := d.h.Call(ctx, "GetDiagnostics")
	if err != nil {
		return ActiveStationDiagnostics{}, classify(err, diagnosticsReasons)
	}
	m, err := dict(r)
	if err != nil {
		return ActiveStationDiagnostics{}, err
	}
	diag, err := parseStationDiagnostics(m)
	if err != nil {
		return ActiveStationDiagnostics{}, fmt.Errorf("GetDiagnostics: %w", err)
	}
	return diag, nil
}

func parseStationDiagnostics(m map[string]bus.Value) (ActiveStationDiagnostics, error) {
	var (
		d   ActiveStationDiagnostics
		err error
	)
	if d.ConnectedBss, err = field[string](m, "ConnectedBss"); err != nil {
		return d, err
	}
	if d.Frequency, err = field[uint32](m, "Frequency"); err != nil {
		return d, err
	}
	if d.Channel, err = field[uint16](m, "Channel"); err != nil {
		return d, err
	}
	sec, err := field[string](m, "Security")
	if err != nil {
		return d, err
	}
	if d.Security, err = ParseSecurity(sec); err != nil {
		return d, err
	}

	if d.RSSI, err = optional[int16](m, "RSSI"); err != nil {
		return d, err
	}
	if d.AverageRSSI, err = optional[int16](m, "AverageRSSI"); err != nil {
		return d, err
	}
	if d.RxMode, err = optionalPhy(m, "RxMode"); err != nil {
		return d, err
	}
	if d.TxMode, err = optionalPhy(m, "TxMode"); err != nil {
		return d, err
	}
	// Bitrates are reported in units of 100 kbit/s.
	if d.RxRateKbps, err = optionalRate(m, "RxBitrate"); err != nil {
		return d, err
	}
	if d.TxRateKbps, err = optionalRate(m, "TxBitrate"); err != nil {
		return d, err
	}
	if d.RxMCS, err = optional[uint8](m, "RxMCS"); err != nil {
		return d, err
	}
	if d.TxMCS, err = optional[uint8](m, "TxMCS"); err != nil {
		return d, err
	}
	if c, err := optional[string](m, "PairwiseCipher"); err != nil {
		return d, err
	} else if c != nil {
		cipher, err := ParseCipher(*c)
		if err != nil {
			return d, err
		}
		d.PairwiseCipher = &cipher
	}
	if d.InactiveTime, err = optionalDuration(m, "InactiveTime", time.Millisecond); err != nil {
		return d, err
	}
	if d.ConnectedTime, err = optionalDuration(m, "ConnectedTime", time.Second); err != nil {
		return d, err
	}
	return d, nil
}

func optionalPhy(m map[string]bus.Value, key string) (*PhyMode, error) {
	s, err := optional[string](m, key)
	if err != nil || s == nil {
		return nil, err
	}
	p, err := ParsePhyMode(*s)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func optionalRate(m map[string]bus.Value, key string) (*uint64, error) {
	r, err := optional[uint32](m, key)
	if err != nil || r == nil {
		return nil, err
	}
	kbps := uint64(*r) * 100
	return &kbps, nil
}

func optionalDuration(m map[string]bus.Value, key string, unit time.Duration) (*time.Duration, error) {
	n, err := optional[uint32](m, key)
	if err != nil || n == nil {
		return nil, err
	}
	d := time.Duration(*n) * unit
	return &d, nil
}

// AccessPointDiagnostics exposes the clients of a running access point.
type AccessPointDiagnostics struct {
	h bus.Handle
}

func (d AccessPointDiagnostics) Path() dbus.ObjectPath { return d.h.Path() }

// GetDiagnostics returns one dictionary per connected client.
func (d AccessPointDiagnostics) GetDiagnostics(ctx context.Context) ([]map[string]bus.Value, error) {
	r, err := d.h.Call(ctx, "GetDiagnostics")
	if err != nil {
		return nil, classify(err, diagnosticsReasons)
	}
	return dicts(r)
}
