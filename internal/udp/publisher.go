package udp

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"lsm303-ng/internal/compass"
)

// Encoder turns one compass snapshot into a datagram payload.
type Encoder func(compass.Snapshot) ([]byte, error)

var cborMode = mustCBORMode()

func mustCBORMode() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func EncodeJSON(s compass.Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// EncodeCBOR uses the JSON field names as map keys so both formats carry the
// same schema.
func EncodeCBOR(s compass.Snapshot) ([]byte, error) {
	return cborMode.Marshal(s)
}

// EncoderFor maps a config format name to its Encoder.
func EncoderFor(format string) (Encoder, error) {
	switch format {
	case "", "json":
		return EncodeJSON, nil
	case "cbor":
		return EncodeCBOR, nil
	default:
		return nil, fmt.Errorf("udp: unknown format %q", format)
	}
}

// Publisher sends every snapshot it is given.
type Publisher struct {
	out *Broadcaster
	enc Encoder
}

func NewPublisher(out *Broadcaster, enc Encoder) *Publisher {
	return &Publisher{out: out, enc: enc}
}

func (p *Publisher) Publish(s compass.Snapshot) error {
	b, err := p.enc(s)
	if err != nil {
		return fmt.Errorf("udp: encode: %w", err)
	}
	return p.out.Send(b)
}
