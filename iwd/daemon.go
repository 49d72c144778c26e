package iwd

import (
	"context"
	"fmt"

	"iwdctl/bus"
)

// Daemon is the service-wide interface at ManagerPath.
type Daemon struct {
	h bus.Handle
}

// DaemonInfo is the reply of GetInfo.
type DaemonInfo struct {
	StateDirectory              string
	Version                     string
	NetworkConfigurationEnabled bool
}

func (d Daemon) GetInfo(ctx context.Context) (DaemonInfo, error) {
	r, err := d.h.Call(ctx, "GetInfo")
	if err != nil {
		return DaemonInfo{}, err
	}
	m, err := dict(r)
	if err != nil {
		return DaemonInfo{}, err
	}
	var info DaemonInfo
	if info.StateDirectory, err = field[string](m, "StateDirectory"); err != nil {
		return info, fmt.Errorf("GetInfo: %w", err)
	}
	if info.Version, err = field[string](m, "Version"); err != nil {
		return info, fmt.Errorf("GetInfo: %w", err)
	}
	if info.NetworkConfigurationEnabled, err = field[bool](m, "NetworkConfigurationEnabled"); err != nil {
		return info, fmt.Errorf("GetInfo: %w", err)
	}
	return info, nil
}
