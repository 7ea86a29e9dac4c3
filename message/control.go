package message

import "fmt"

// DisplayOption selects the display-text clearing/font mode.
type DisplayOption byte

const (
	DisplayClear DisplayOption = '0'
	DisplaySmall DisplayOption = '1'
	DisplayBig   DisplayOption = '2'
)

const displayLineWidth = 21

// EncodeAbort builds the abort-transaction control message.
func EncodeAbort() []byte {
	return []byte{IDAbortRequest, '2'}
}

// EncodeAcceptReject builds the accept/reject-paused-transaction message for
// the given transactionId. accept selects accept (true) or reject (false).
func EncodeAcceptReject(transactionID string, accept bool) ([]byte, error) {
	id, err := padLeftZero(transactionID, 5)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 16)
	out = append(out, IDAcceptReject)
	out = append(out, id...)
	if accept {
		out = append(out, '1')
	} else {
		out = append(out, '9')
	}
	out = append(out, bytes12Zero()[:9]...)

	return out, nil
}

// EncodeDisplayText builds a display-text message. Lines longer than
// displayLineWidth, measured after conversion to the wire's single-byte
// charset, are truncated and force the display down to small font, even if
// bigFont was requested (see boundary behaviors).
func EncodeDisplayText(line1, line2 string, bigFont bool) []byte {
	enc1 := encodeText(line1)
	enc2 := encodeText(line2)

	opt := DisplayClear
	if bigFont {
		opt = DisplayBig
	} else if len(enc1) > 0 || len(enc2) > 0 {
		opt = DisplaySmall
	}

	if len(enc1) > displayLineWidth || len(enc2) > displayLineWidth {
		opt = DisplaySmall
	}

	out := make([]byte, 0, 2+2*displayLineWidth+4)
	out = append(out, IDDisplayText, byte(opt))
	out = append(out, padRightSpace(enc1, displayLineWidth)...)
	out = append(out, padRightSpace(enc2, displayLineWidth)...)
	out = append(out, padRightSpace(nil, 4)...)

	return out
}

// EncodeAuxiliaryMode builds the auxiliary-accept-mode set/reset message.
func EncodeAuxiliaryMode(enable bool) []byte {
	return []byte{IDAuxiliaryMode, '2', boolDigit(enable)}
}

// DeviceControlQuery selects which device-control result is requested.
type DeviceControlQuery byte

const (
	DeviceControlStatus  DeviceControlQuery = '0'
	DeviceControlTCS     DeviceControlQuery = '1'
	DeviceControlVersion DeviceControlQuery = '2'
)

// EncodeDeviceControl builds a device-control query message.
func EncodeDeviceControl(q DeviceControlQuery) []byte {
	return []byte{IDDeviceControl, '0', byte(q)}
}

// BonusCardActivation selects the bonus-card-mode value.
type BonusCardActivation byte

const (
	BonusCardOff       BonusCardActivation = '0'
	BonusCardOn        BonusCardActivation = '1'
	BonusCardAutoReply BonusCardActivation = '2'
)

// EncodeBonusCardMode builds the bonus-card-mode control message.
func EncodeBonusCardMode(activation BonusCardActivation) []byte {
	return []byte{IDBonusCardMode, byte(activation), '0', '0', '0'}
}

// EncodeCustomerRequest builds the customer (bonus) card info request.
func EncodeCustomerRequest(stopActive bool) []byte {
	return []byte{IDCustomerRequest, boolDigit(!stopActive)}
}

// EncodeHandshake returns the single-byte ENQ handshake probe.
func EncodeHandshake() byte { return 0x05 }

// validateTransactionID reports whether id is a valid 5-character numeric
// transaction identifier (or the placeholder).
func validateTransactionID(id string) error {
	if len(id) != 5 {
		return fmt.Errorf("message: transaction id %q must be 5 digits", id)
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return fmt.Errorf("message: transaction id %q must be numeric", id)
		}
	}
	return nil
}
