package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// LicenseRecordVersion is written into every saved license.json.
const LicenseRecordVersion = 1

// HardwareID is the truncated hash identifying this machine.
type HardwareID string

// Display returns the "PC_XXXX" form shown to users.
func (h HardwareID) Display() string {
	if h == "" {
		return "PC_UNKNOWN"
	}
	return "PC_" + strings.ToUpper(string(h))
}

// Short returns the first 8 characters of the display id, used in status lines.
func (h HardwareID) Short() string {
	s := strings.ToUpper(string(h))
	if len(s) > 8 {
		s = s[:8]
	}
	return "PC_" + s
}

// Opaque is a value copied verbatim from the external validator. The validator may send a
// string, a number or null; all of them decode to their textual form.
type Opaque string

// UnmarshalJSON accepts strings, numbers and null.
func (o *Opaque) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Opaque(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*o = Opaque(n.String())
	return nil
}

// LicenseRecord is the durable activation record for this device (license.json).
type LicenseRecord struct {
	Version        int        `json:"version,omitempty"`
	TelegramID     Opaque     `json:"telegram_id,omitempty"`
	Plan           Opaque     `json:"plan,omitempty"`
	Issued         Opaque     `json:"issued,omitempty"`
	Expires        Opaque     `json:"expires,omitempty"`
	HardwareID     HardwareID `json:"hardware_id,omitempty"` // write-once
	ActivationDate string     `json:"activation_date,omitempty"`
	HardwareLocked bool       `json:"hardware_locked"`
	Valid          bool       `json:"valid"`
}

// Bound reports whether the record has been bound to a device.
func (r LicenseRecord) Bound() bool {
	return r.HardwareID != ""
}

// BindingState is the activation state machine position.
type BindingState string

const (
	Unbound          BindingState = "unbound"
	BoundThisDevice  BindingState = "bound_this_device"
	BoundOtherDevice BindingState = "bound_other_device"
	InvalidRemote    BindingState = "invalid_remote"
)

// LicenseOutcome is what the external validator returns, and what activation reports upward.
type LicenseOutcome struct {
	Valid      bool       `json:"valid"`
	Message    string     `json:"message"`
	Details    string     `json:"details,omitempty"`
	TelegramID Opaque     `json:"telegram_id,omitempty"`
	Plan       Opaque     `json:"plan,omitempty"`
	Issued     Opaque     `json:"issued,omitempty"`
	Expires    Opaque     `json:"expires,omitempty"`
	HardwareID HardwareID `json:"hardware_id,omitempty"`

	// Set locally, never by the validator.
	State      BindingState `json:"-"`
	NewlyBound bool         `json:"-"`
}
