package lnwire

import "io"

// FundingLocked is sent by both sides once the funding transaction has
// reached the configured confirmation threshold, per spec §4.5.
// Grounded on lnwire/funding_locked.go, with the outpoint field dropped:
// this engine's ChannelID already derives from it.
type FundingLocked struct {
	ChannelID              ChannelID
	NextPerCommitmentPoint [33]byte // compressed pubkey
}

var _ Message = (*FundingLocked)(nil)

func (m *FundingLocked) MsgType() MessageType { return MsgFundingLocked }

func (m *FundingLocked) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	_, err := w.Write(m.NextPerCommitmentPoint[:])
	return err
}

func (m *FundingLocked) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid
	_, err = io.ReadFull(r, m.NextPerCommitmentPoint[:])
	return err
}
