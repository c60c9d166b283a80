package lnwire

import "io"

// ChannelReestablish is sent on reconnection so both peers can resync
// their view of the commitment chain after a disconnect, per spec §4.5
// ("a peer disconnected while in the middle of a commitment update
// resumes via the standard reestablish dance on reconnect").
type ChannelReestablish struct {
	ChannelID           ChannelID
	NextLocalCommitNum  uint64
	NextRemoteRevokeNum uint64
}

var _ Message = (*ChannelReestablish)(nil)

func (m *ChannelReestablish) MsgType() MessageType { return MsgChannelReestablish }

func (m *ChannelReestablish) Encode(w io.Writer) error {
	if err := writeBytes32(w, m.ChannelID); err != nil {
		return err
	}
	if err := writeUint64(w, m.NextLocalCommitNum); err != nil {
		return err
	}
	return writeUint64(w, m.NextRemoteRevokeNum)
}

func (m *ChannelReestablish) Decode(r io.Reader) error {
	cid, err := readBytes32(r)
	if err != nil {
		return err
	}
	m.ChannelID = cid

	if m.NextLocalCommitNum, err = readUint64(r); err != nil {
		return err
	}
	m.NextRemoteRevokeNum, err = readUint64(r)
	return err
}
