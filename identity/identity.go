// Package identity implements the 24-bit colour signatures carried by nodes
// and signals, and the similarity score used to grow links between them.
package identity

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// SigLength is the number of bits per channel.
const SigLength = 8

// NumChannels is the number of colour channels in a signature.
const NumChannels = 3

// Channel indexes a colour channel.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
)

// channelKeys are the persisted channel names.
var channelKeys = [NumChannels]string{"r", "g", "b"}

// Bits is one channel, low bit first.
type Bits [SigLength]uint8

// Value returns the 0-255 channel value.
func (b Bits) Value() uint8 {
	var v uint8
	for i := SigLength - 1; i >= 0; i-- {
		v = v<<1 | b[i]&1
	}
	return v
}

// bitsOf expands a channel value into low-bit-first bits.
func bitsOf(v uint8) Bits {
	var b Bits
	for i := 0; i < SigLength; i++ {
		b[i] = (v >> i) & 1
	}
	return b
}

// tally accumulates weighted agreement and disagreement per bit slot.
type tally struct {
	same [NumChannels][SigLength]float64
	diff [NumChannels][SigLength]float64
}

// Identity is a 3x8 bit signature plus the pending comparison tally that the
// next Resolve consumes.
type Identity struct {
	Channels [NumChannels]Bits

	pending tally
}

// New returns an identity with a uniformly random colour.
func New(rng *rand.Rand) *Identity {
	return FromColor(RGB{
		R: uint8(rng.Intn(256)),
		G: uint8(rng.Intn(256)),
		B: uint8(rng.Intn(256)),
	})
}

// FromColor builds the signature whose colour is c.
func FromColor(c RGB) *Identity {
	id := &Identity{}
	id.Channels[Red] = bitsOf(c.R)
	id.Channels[Green] = bitsOf(c.G)
	id.Channels[Blue] = bitsOf(c.B)
	return id
}

// Clone copies the bits. The pending tally is not carried over.
func (id *Identity) Clone() *Identity {
	return &Identity{Channels: id.Channels}
}

// Compare accumulates, for every bit slot of every channel, weight into the
// agreement or disagreement tally against other.
func (id *Identity) Compare(other *Identity, weight float64) {
	for c := 0; c < NumChannels; c++ {
		for i := 0; i < SigLength; i++ {
			if id.Channels[c][i] == other.Channels[c][i] {
				id.pending.same[c][i] += weight
			} else {
				id.pending.diff[c][i] += weight
			}
		}
	}
}

// Resolve applies the pending tally and clears it. A slot flips only when it
// saw more disagreement than agreement, with chance d/(s+d) scaled by
// 1/2^(i+1), so high-order bits are the most stable.
func (id *Identity) Resolve(rng *rand.Rand) {
	for i := 0; i < SigLength; i++ {
		slotFactor := 1 / math.Pow(2, float64(i+1))
		for c := 0; c < NumChannels; c++ {
			d, s := id.pending.diff[c][i], id.pending.same[c][i]
			if d <= s {
				continue
			}
			if rng.Float64() < d/(s+d)*slotFactor {
				id.Channels[c][i] ^= 1
			}
		}
	}
	id.pending = tally{}
}

// Pending reports the accumulated agreement and disagreement for one slot.
func (id *Identity) Pending(c Channel, slot int) (same, diff float64) {
	return id.pending.same[c][slot], id.pending.diff[c][slot]
}

// Color returns the channel values.
func (id *Identity) Color() RGB {
	return RGB{
		R: id.Channels[Red].Value(),
		G: id.Channels[Green].Value(),
		B: id.Channels[Blue].Value(),
	}
}

// String renders the colour in rgba() form.
func (id *Identity) String() string {
	return id.Color().String()
}

// Matching counts equal bits per channel.
func Matching(a, b *Identity) [NumChannels]int {
	var n [NumChannels]int
	for c := 0; c < NumChannels; c++ {
		for i := 0; i < SigLength; i++ {
			if a.Channels[c][i] == b.Channels[c][i] {
				n[c]++
			}
		}
	}
	return n
}

// MaxSimilarity is the score of two identical signatures.
const MaxSimilarity = 30 * 256

// Similarity scores how alike a signal and its target are: each channel
// contributes 2^matchingBits, the channel mean is scaled by 30. Identical
// signatures score MaxSimilarity, fully inverted ones score 30.
func Similarity(signal, target *Identity) float64 {
	var sum float64
	for _, n := range Matching(signal, target) {
		sum += math.Pow(2, float64(n))
	}
	return sum / NumChannels * 30
}

// wireBits is the persisted form of the signature. The slots are ints so
// they encode as a JSON array of 0/1, not a base64 byte string.
type wireBits struct {
	R []int `json:"r"`
	G []int `json:"g"`
	B []int `json:"b"`
}

func toWire(bits Bits) []int {
	out := make([]int, SigLength)
	for i, b := range bits {
		out[i] = int(b)
	}
	return out
}

type wireIdentity struct {
	ID *wireBits `json:"id"`
}

// MarshalJSON writes {"id": {"r": [...], "g": [...], "b": [...]}}.
func (id *Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireIdentity{ID: &wireBits{
		R: toWire(id.Channels[Red]),
		G: toWire(id.Channels[Green]),
		B: toWire(id.Channels[Blue]),
	}})
}

// UnmarshalJSON accepts the wrapped form and the bare {"r","g","b"} form.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var wrapped wireIdentity
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("decoding identity: %w", err)
	}
	bits := wrapped.ID
	if bits == nil {
		bits = &wireBits{}
		if err := json.Unmarshal(data, bits); err != nil {
			return fmt.Errorf("decoding identity: %w", err)
		}
	}
	for c, src := range [][]int{bits.R, bits.G, bits.B} {
		if len(src) != SigLength {
			return fmt.Errorf("identity channel %q: want %d bits, got %d", channelKeys[c], SigLength, len(src))
		}
		for i, v := range src {
			if v != 0 && v != 1 {
				return fmt.Errorf("identity channel %q slot %d: bit value %d", channelKeys[c], i, v)
			}
			id.Channels[c][i] = uint8(v)
		}
	}
	id.pending = tally{}
	return nil
}
