package lnwire

import "io"

// CommitmentSigned conveys the sender's signature for the recipient's
// next commitment transaction, sent whenever the sender wants to update
// the commitment after adding/settling/failing an HTLC, per spec §4.5.
// Grounded on lnwire's Signature-carrying messages; HtlcSigs is
// variable-length since a commitment can cover zero or many HTLCs.
type CommitmentSigned struct {
	ChannelID ChannelID
	CommitSig []byte // DER-encoded signature
	HtlcSigs  [][]byte
}

var _ Message = (*CommitmentSigned)(nil)

func (m *CommitmentSigned) MsgType() MessageType { return MsgCommitmentSigned }

func (m *CommitmentSigned) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.CommitSig); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(m.HtlcSigs))); err != nil {
		return err
	}
	for _, sig := range m.HtlcSigs {
		if err := writeVarBytes(w, sig); err != nil {
			return err
		}
	}
	return nil
}

func (m *CommitmentSigned) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid

	if m.CommitSig, err = readVarBytes(r); err != nil {
		return err
	}

	count, err := readUint32(r)
	if err != nil {
		return err
	}
	m.HtlcSigs = make([][]byte, count)
	for i := range m.HtlcSigs {
		if m.HtlcSigs[i], err = readVarBytes(r); err != nil {
			return err
		}
	}
	return nil
}
