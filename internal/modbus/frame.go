package modbus

import (
	"encoding/binary"
	"fmt"
	"io"
)

const mbapHeaderLen = 7

// adu is one parsed Modbus/TCP application data unit: the MBAP header
// fields plus the PDU bytes that followed it.
type adu struct {
	transactionID uint16
	unitID        byte
	pdu           []byte
}

// readADU reads exactly one ADU from r: 7 bytes of MBAP header, then
// length-1 further bytes of PDU (length counts unit_id plus the PDU).
func readADU(r io.Reader) (*adu, error) {
	header := make([]byte, mbapHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	transactionID := binary.BigEndian.Uint16(header[0:2])
	protocolID := binary.BigEndian.Uint16(header[2:4])
	length := binary.BigEndian.Uint16(header[4:6])
	unitID := header[6]

	if protocolID != 0 {
		return nil, fmt.Errorf("modbus: non-zero protocol id %d", protocolID)
	}
	if length < 1 {
		return nil, fmt.Errorf("modbus: MBAP length %d too short", length)
	}

	pdu := make([]byte, length-1)
	if len(pdu) > 0 {
		if _, err := io.ReadFull(r, pdu); err != nil {
			return nil, err
		}
	}

	return &adu{transactionID: transactionID, unitID: unitID, pdu: pdu}, nil
}

// writeADU frames a response PDU with the MBAP header, echoing the
// request's transaction id and unit id.
func writeADU(w io.Writer, transactionID uint16, unitID byte, pdu []byte) error {
	out := make([]byte, mbapHeaderLen+len(pdu))
	binary.BigEndian.PutUint16(out[0:2], transactionID)
	binary.BigEndian.PutUint16(out[2:4], 0)
	binary.BigEndian.PutUint16(out[4:6], uint16(1+len(pdu)))
	out[6] = unitID
	copy(out[7:], pdu)

	_, err := w.Write(out)
	return err
}
