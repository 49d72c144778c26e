package iwd

import (
	"strings"

	"iwdctl/bus"
)

// Mode is the operating mode of a device.
type Mode string

const (
	ModeStation Mode = "station"
	ModeAP      Mode = "ap"
	ModeAdHoc   Mode = "ad-hoc"
)

// ParseMode parses a Device.Mode value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeStation, ModeAP, ModeAdHoc:
		return m, nil
	}
	return "", &bus.TypeMismatchError{Want: "mode", Got: s}
}

// StationState is the connection state of a station.
type StationState string

const (
	StateConnected     StationState = "connected"
	StateDisconnected  StationState = "disconnected"
	StateConnecting    StationState = "connecting"
	StateDisconnecting StationState = "disconnecting"
	StateRoaming       StationState = "roaming"
)

// ParseStationState parses a Station.State value.
func ParseStationState(s string) (StationState, error) {
	switch st := StationState(s); st {
	case StateConnected, StateDisconnected, StateConnecting, StateDisconnecting, StateRoaming:
		return st, nil
	}
	return "", &bus.TypeMismatchError{Want: "station state", Got: s}
}

// NetworkType is the security class of a network.
type NetworkType string

const (
	NetworkOpen  NetworkType = "open"
	NetworkWEP   NetworkType = "wep"
	NetworkPSK   NetworkType = "psk"
	Network8021X NetworkType = "8021x"
)

// ParseNetworkType parses a network type, ignoring case.
func ParseNetworkType(s string) (NetworkType, error) {
	switch t := NetworkType(strings.ToLower(s)); t {
	case NetworkOpen, NetworkWEP, NetworkPSK, Network8021X:
		return t, nil
	}
	return "", &bus.TypeMismatchError{Want: "network type", Got: s}
}

// Security is the negotiated security of an active connection.
type Security string

const (
	SecurityOpen             Security = "Open"
	SecurityWPA2Enterprise   Security = "WPA2-Enterprise"
	SecurityWPA1Personal     Security = "WPA1-Personal"
	SecurityWPA2Personal     Security = "WPA2-Personal"
	SecurityWPA2EnterpriseFT Security = "WPA2-Enterprise + FT"
	SecurityWPA2PersonalFT   Security = "WPA2-Personal + FT"
	SecurityWPA3Personal     Security = "WPA3-Personal"
	SecurityWPA3PersonalFT   Security = "WPA3-Personal + FT"
	SecurityOWE              Security = "OWE"
	SecurityFILS             Security = "FILS"
	SecurityFILSFT           Security = "FILS + FT"
	SecurityOSEN             Security = "OSEN"
)

var securities = []Security{
	SecurityOpen, SecurityWPA2Enterprise, SecurityWPA1Personal, SecurityWPA2Personal,
	SecurityWPA2EnterpriseFT, SecurityWPA2PersonalFT, SecurityWPA3Personal, SecurityWPA3PersonalFT,
	SecurityOWE, SecurityFILS, SecurityFILSFT, SecurityOSEN,
}

// ParseSecurity parses a diagnostics Security value.
func ParseSecurity(s string) (Security, error) {
	for _, sec := range securities {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", &bus.TypeMismatchError{Want: "security", Got: s}
}

// PhyMode is the 802.11 mode of a link direction.
type PhyMode string

const (
	Phy80211n  PhyMode = "802.11n"
	Phy80211ac PhyMode = "802.11ac"
	Phy80211ax PhyMode = "802.11ax"
)

// ParsePhyMode parses RxMode and TxMode values.
func ParsePhyMode(s string) (PhyMode, error) {
	switch m := PhyMode(s); m {
	case Phy80211n, Phy80211ac, Phy80211ax:
		return m, nil
	}
	return "", &bus.TypeMismatchError{Want: "phy mode", Got: s}
}

// Cipher is a pairwise or group cipher.
type Cipher string

const (
	CipherTKIP    Cipher = "TKIP"
	CipherCCMP128 Cipher = "CCMP-128"
	CipherCCMP256 Cipher = "CCMP-256"
	CipherGCMP128 Cipher = "GCMP-128"
	CipherGCMP256 Cipher = "GCMP-256"
)

// ParseCipher parses a cipher name.
func ParseCipher(s string) (Cipher, error) {
	switch c := Cipher(s); c {
	case CipherTKIP, CipherCCMP128, CipherCCMP256, CipherGCMP128, CipherGCMP256:
		return c, nil
	}
	return "", &bus.TypeMismatchError{Want: "cipher", Got: s}
}
