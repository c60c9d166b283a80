package lnwire

import "io"

// Shutdown initiates cooperative channel close by proposing a final
// script the sender's settled balance should pay to, per spec §4.5's
// shutdown_pending/closing_negotiation states.
type Shutdown struct {
	ChannelID    ChannelID
	ScriptPubkey []byte
}

var _ Message = (*Shutdown)(nil)

func (m *Shutdown) MsgType() MessageType { return MsgShutdown }

func (m *Shutdown) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	return writeVarBytes(w, m.ScriptPubkey)
}

func (m *Shutdown) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid
	m.ScriptPubkey, err = readVarBytes(r)
	return err
}
