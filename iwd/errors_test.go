package iwd

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"iwdctl/bus"
)

func TestReasonNames(t *testing.T) {
	assert.Equal(t, "net.connman.iwd.Busy", ReasonBusy.Name())
	assert.Equal(t, "InProgress", ReasonBusy.Short())
	assert.Equal(t, "Operation already in progress", ReasonBusy.Error())
	assert.Equal(t, "net.connman.iwd.InProgress", ReasonInProgress.Name())
	assert.Equal(t, "Argument type is wrong", ReasonInvalidArguments.Message())
	assert.Equal(t, "", Reason(0).Name())
	assert.Equal(t, "Reason(200)", Reason(200).String())
}

func TestClassify(t *testing.T) {
	remote := &bus.TransportError{Op: "net.connman.iwd.Network.Connect", Err: dbus.Error{Name: ReasonNoAgent.Name()}}

	err := classify(remote, networkConnectReasons)
	var oe *OperationError
	assert.ErrorAs(t, err, &oe)
	assert.Equal(t, "net.connman.iwd.Network.Connect", oe.Op)
	assert.Equal(t, "net.connman.iwd.Network.Connect: No Agent registered", err.Error())

	assert.Same(t, remote, classify(remote, stationScanReasons))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, classify(plain, networkConnectReasons))
	assert.NoError(t, classify(nil, networkConnectReasons))
}
