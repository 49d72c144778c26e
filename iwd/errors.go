package iwd

import (
	"errors"
	"fmt"

	"iwdctl/bus"
)

// ErrCanceled is returned by agent handlers that decline a request. It reaches the
// daemon as a Failed fault.
var ErrCanceled = errors.New("canceled")

// Reason is a failure kind the daemon reports by error name. Reason values are
// errors, so errors.Is(err, iwd.ReasonBusy) works on an *OperationError.
type Reason uint8

const (
	ReasonBusy Reason = iota + 1
	ReasonFailed
	ReasonInvalidArguments
	ReasonAlreadyExists
	ReasonNotFound
	ReasonNotSupported
	ReasonNotAvailable
	ReasonNotConnected
	ReasonAborted
	ReasonNoAgent
	ReasonInProgress
	ReasonNotConfigured
	ReasonInvalidFormat
)

var reasonInfo = [...]struct {
	name, short, message string
}{
	ReasonBusy:             {Service + ".Busy", "InProgress", "Operation already in progress"},
	ReasonFailed:           {Service + ".Failed", "Failed", "Operation failed"},
	ReasonInvalidArguments: {Service + ".InvalidArguments", "InvalidArguments", "Argument type is wrong"},
	ReasonAlreadyExists:    {Service + ".AlreadyExists", "AlreadyExists", "Object already exists"},
	ReasonNotFound:         {Service + ".NotFound", "NotFound", "Object not found"},
	ReasonNotSupported:     {Service + ".NotSupported", "NotSupported", "Operation not supported"},
	ReasonNotAvailable:     {Service + ".NotAvailable", "NotAvailable", "Operation not available"},
	ReasonNotConnected:     {Service + ".NotConnected", "NotConnected", "Not connected"},
	ReasonAborted:          {Service + ".Aborted", "Aborted", "Operation aborted"},
	ReasonNoAgent:          {Service + ".NoAgent", "NoAgent", "No Agent registered"},
	ReasonInProgress:       {Service + ".InProgress", "InProgress", "Operation already in progress"},
	ReasonNotConfigured:    {Service + ".NotConfigured", "NotConfigured", "Not configured"},
	ReasonInvalidFormat:    {Service + ".InvalidFormat", "InvalidFormat", "Argument format is invalid"},
}

func (r Reason) valid() bool { return r > 0 && int(r) < len(reasonInfo) }

// Name returns the D-Bus error name.
func (r Reason) Name() string {
	if !r.valid() {
		return ""
	}
	return reasonInfo[r].name
}

// Short returns the short message the daemon pairs with the name.
func (r Reason) Short() string {
	if !r.valid() {
		return ""
	}
	return reasonInfo[r].short
}

// Message returns the detailed message.
func (r Reason) Message() string {
	if !r.valid() {
		return fmt.Sprintf("Reason(%d)", uint8(r))
	}
	return reasonInfo[r].message
}

func (r Reason) Error() string { return r.Message() }

func (r Reason) String() string {
	if !r.valid() {
		return fmt.Sprintf("Reason(%d)", uint8(r))
	}
	return reasonInfo[r].short
}

// Operation families: the reasons each daemon method documents.
var (
	stationScanReasons       = []Reason{ReasonBusy, ReasonFailed}
	stationDisconnectReasons = []Reason{ReasonBusy, ReasonFailed, ReasonNotConnected}
	connectHiddenReasons     = []Reason{
		ReasonBusy, ReasonFailed, ReasonInvalidArguments, ReasonNotConfigured, ReasonNotConnected,
		ReasonNotFound, ReasonNotSupported, ReasonAborted, ReasonInProgress,
	}
	diagnosticsReasons    = []Reason{ReasonBusy, ReasonFailed, ReasonNotConnected}
	networkConnectReasons = []Reason{
		ReasonAborted, ReasonBusy, ReasonFailed, ReasonNoAgent, ReasonNotSupported,
		ReasonInProgress, ReasonNotConfigured, ReasonInvalidFormat,
	}
	apStartReasons        = []Reason{ReasonFailed, ReasonInvalidArguments, ReasonAlreadyExists}
	apStopReasons         = []Reason{ReasonBusy, ReasonFailed, ReasonInvalidArguments}
	apStartProfileReasons = []Reason{ReasonBusy, ReasonFailed, ReasonInvalidArguments, ReasonAlreadyExists, ReasonNotFound}
	apScanReasons         = []Reason{ReasonNotAvailable, ReasonNotSupported, ReasonBusy, ReasonFailed}
	forgetReasons         = []Reason{ReasonNotSupported, ReasonFailed}
	registerAgentReasons  = []Reason{ReasonInvalidArguments, ReasonAlreadyExists}
	unregisterReasons     = []Reason{ReasonNotFound}
)

// OperationError is a documented failure of one daemon method.
type OperationError struct {
	Op     string
	Reason Reason
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason.Message())
}

// Unwrap exposes both the reason and the underlying transport error.
func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// ReasonOf returns the reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Reason, true
	}
	return 0, false
}

// classify turns a remote fault named in accepted into an *OperationError. Every
// other error is returned unchanged.
func classify(err error, accepted []Reason) error {
	if err == nil {
		return nil
	}
	name, ok := bus.RemoteError(err)
	if !ok {
		return err
	}
	for _, r := range accepted {
		if r.Name() != name {
			continue
		}
		op := ""
		var te *bus.TransportError
		if errors.As(err, &te) {
			op = te.Op
		}
		return &OperationError{Op: op, Reason: r, Err: err}
	}
	return err
}
