package connect

import (
	"connectrpc.com/connect"
	"github.com/goccy/go-json"
)

// jsonCodec marshals plain Go structs, so the services need no generated messages.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON selects the JSON codec on handlers and clients.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
