package lnwire

import "io"

// UpdateAddHTLC proposes adding a new HTLC to the commitment, per spec
// §3/§4.5. Grounded on lnwire/update_fulfill_htlc.go's sibling messages.
type UpdateAddHTLC struct {
	ChannelID   ChannelID
	ID          uint64
	AmountMsat  uint64
	PaymentHash [32]byte
	Expiry      uint32
	OnionBlob   []byte
}

var _ Message = (*UpdateAddHTLC)(nil)

func (m *UpdateAddHTLC) MsgType() MessageType { return MsgUpdateAddHTLC }

func (m *UpdateAddHTLC) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	if err := writeUint64(w, m.AmountMsat); err != nil {
		return err
	}
	if err := writeBytes32(w, m.PaymentHash); err != nil {
		return err
	}
	if err := writeUint32(w, m.Expiry); err != nil {
		return err
	}
	return writeVarBytes(w, m.OnionBlob)
}

func (m *UpdateAddHTLC) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid

	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	if m.AmountMsat, err = readUint64(r); err != nil {
		return err
	}
	if m.PaymentHash, err = readBytes32(r); err != nil {
		return err
	}
	if m.Expiry, err = readUint32(r); err != nil {
		return err
	}
	m.OnionBlob, err = readVarBytes(r)
	return err
}

// UpdateFulfillHTLC settles an HTLC by revealing its preimage, per spec
// §8 invariant 4 (the preimage must hash to the HTLC's payment hash).
type UpdateFulfillHTLC struct {
	ChannelID       ChannelID
	ID              uint64
	PaymentPreimage [32]byte
}

var _ Message = (*UpdateFulfillHTLC)(nil)

func (m *UpdateFulfillHTLC) MsgType() MessageType { return MsgUpdateFulfillHTLC }

func (m *UpdateFulfillHTLC) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	return writeBytes32(w, m.PaymentPreimage)
}

func (m *UpdateFulfillHTLC) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid

	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	m.PaymentPreimage, err = readBytes32(r)
	return err
}

// FailCode enumerates why an HTLC was failed back, a small subset of
// BOLT-4's failure codes sufficient for an endpoint-only node (no
// forwarding, so most relay-specific codes do not apply).
type FailCode uint16

const (
	FailIncorrectPaymentDetails FailCode = 15
	FailInvoiceExpired          FailCode = 17
	FailTemporaryNodeFailure    FailCode = 2
	FailInvalidOnionPayload     FailCode = 22
)

// UpdateFailHTLC fails an HTLC back to the sender.
type UpdateFailHTLC struct {
	ChannelID ChannelID
	ID        uint64
	Reason    []byte
}

var _ Message = (*UpdateFailHTLC)(nil)

func (m *UpdateFailHTLC) MsgType() MessageType { return MsgUpdateFailHTLC }

func (m *UpdateFailHTLC) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	return writeVarBytes(w, m.Reason)
}

func (m *UpdateFailHTLC) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid

	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	m.Reason, err = readVarBytes(r)
	return err
}
