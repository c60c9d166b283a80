package lnwire

import "io"

// RevokeAndAck releases the secret that revokes the sender's prior
// commitment and advertises the point to derive the next one, per spec
// §4.5's commitment discipline: revocation secrets once released must be
// retained so a revoked commitment can be penalized on-chain.
type RevokeAndAck struct {
	ChannelID           ChannelID
	Revocation          [32]byte // per-commitment secret for the prior commitment
	NextCommitmentPoint [33]byte
}

var _ Message = (*RevokeAndAck)(nil)

func (m *RevokeAndAck) MsgType() MessageType { return MsgRevokeAndAck }

func (m *RevokeAndAck) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	if err := writeBytes32(w, m.Revocation); err != nil {
		return err
	}
	_, err := w.Write(m.NextCommitmentPoint[:])
	return err
}

func (m *RevokeAndAck) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid

	if m.Revocation, err = readBytes32(r); err != nil {
		return err
	}
	_, err = io.ReadFull(r, m.NextCommitmentPoint[:])
	return err
}
