package iwd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iwdctl/bus"
)

func TestParseNetworkType(t *testing.T) {
	for in, want := range map[string]NetworkType{
		"open": NetworkOpen, "WEP": NetworkWEP, "Psk": NetworkPSK, "8021X": Network8021X,
	} {
		got, err := ParseNetworkType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseNetworkType("sae")
	assert.ErrorAs(t, err, new(*bus.TypeMismatchError))
}

func TestParseEnums(t *testing.T) {
	m, err := ParseMode("ap")
	require.NoError(t, err)
	assert.Equal(t, ModeAP, m)
	_, err = ParseMode("AP")
	assert.Error(t, err)

	st, err := ParseStationState("roaming")
	require.NoError(t, err)
	assert.Equal(t, StateRoaming, st)
	_, err = ParseStationState("")
	assert.Error(t, err)

	sec, err := ParseSecurity("WPA3-Personal + FT")
	require.NoError(t, err)
	assert.Equal(t, SecurityWPA3PersonalFT, sec)
	_, err = ParseSecurity("WPA4")
	assert.Error(t, err)

	phy, err := ParsePhyMode("802.11ax")
	require.NoError(t, err)
	assert.Equal(t, Phy80211ax, phy)

	c, err := ParseCipher("GCMP-256")
	require.NoError(t, err)
	assert.Equal(t, CipherGCMP256, c)
	_, err = ParseCipher("WEP-40")
	assert.Error(t, err)
}
