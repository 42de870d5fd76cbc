// Package image implements bakerVM's on-disk program image: the
// preamble/version/config/instructions container described in spec.md
// §6, serialized as a self-describing MessagePack-style named record via
// github.com/hashicorp/go-msgpack/codec.
package image

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-msgpack/codec"

	"github.com/bakervm/bakervm/internal/vm"
)

// Preamble is the literal ASCII header every valid image starts with.
const Preamble = "BAKERVM"

// Version is the runtime's own version string. spec.md §6 requires an
// exact match between a loaded image's version field and this constant;
// there is no forward or backward compatibility across versions.
const Version = "1.0.0"

// Config is the image's configuration record, spec.md §6. Every field
// defaults as documented when absent from a loaded image: Decode starts
// from DefaultConfig and the msgpack codec leaves fields whose keys are
// missing untouched; applyDefaults then also replaces zero-valued
// string and numeric fields.
type Config struct {
	Title string

	DisplayWidth  uint64
	DisplayHeight uint64

	DefaultScale float64
	HideCursor   bool

	InputEnabled bool
}

// DefaultConfig returns spec.md §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		Title:         "bakerVM",
		DisplayWidth:  160,
		DisplayHeight: 100,
		DefaultScale:  4.0,
		HideCursor:    true,
		InputEnabled:  true,
	}
}

// applyDefaults fills zero-valued fields with DefaultConfig's values,
// modeling spec.md §6's "missing fields fall back to defaults" rule for
// an image whose encoder omitted them. HideCursor/InputEnabled default
// true, so they can't be told apart from an explicit false this way;
// encoders are expected to always write them (Encode always does, as it
// writes every Config field).
func (c Config) applyDefaults() Config {
	d := DefaultConfig()
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.DisplayWidth == 0 {
		c.DisplayWidth = d.DisplayWidth
	}
	if c.DisplayHeight == 0 {
		c.DisplayHeight = d.DisplayHeight
	}
	if c.DefaultScale == 0 {
		c.DefaultScale = d.DefaultScale
	}
	return c
}

// Image is the full deserialized program image: preamble, version,
// config and the instruction vector.
type Image struct {
	Preamble     string
	Version      string
	Config       Config
	Instructions []vm.Instruction
}

// wireImage is the exact shape written to and read from disk. It's kept
// separate from Image so callers always go through New/Decode, which
// enforce the preamble and version gate spec.md §6 requires before
// handing back a usable Image.
type wireImage struct {
	Preamble     string
	Version      string
	Config       Config
	Instructions []vm.Instruction
}

// New builds an in-memory Image ready for Encode, stamping the current
// preamble and version and filling in config defaults.
func New(cfg Config, instructions []vm.Instruction) Image {
	return Image{
		Preamble:     Preamble,
		Version:      Version,
		Config:       cfg.applyDefaults(),
		Instructions: instructions,
	}
}

func msgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.StructToArray = false // named-record encoding per spec.md §6
	return h
}

// Encode writes the bit-exact wire form of img.
func (img Image) Encode(w io.Writer) error {
	enc := codec.NewEncoder(w, msgpackHandle())
	wire := wireImage{
		Preamble:     img.Preamble,
		Version:      img.Version,
		Config:       img.Config,
		Instructions: img.Instructions,
	}
	if err := enc.Encode(&wire); err != nil {
		return fmt.Errorf("encode program image: %w", err)
	}
	return nil
}

// Bytes is a convenience wrapper around Encode.
func (img Image) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := img.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads and validates a program image from r. It fails with an
// *vm.Error of Kind vm.InvalidImage if the bytes don't parse, the
// preamble doesn't match, or the version string doesn't match this
// runtime's exactly (spec.md §6).
func Decode(r io.Reader) (Image, error) {
	dec := codec.NewDecoder(r, msgpackHandle())
	wire := wireImage{Config: DefaultConfig()}
	if err := dec.Decode(&wire); err != nil {
		return Image{}, &vm.Error{Kind: vm.InvalidImage, PC: -1, Msg: "malformed program image", Err: err}
	}
	if wire.Preamble != Preamble {
		return Image{}, &vm.Error{Kind: vm.InvalidImage, PC: -1, Msg: fmt.Sprintf("bad preamble %q", wire.Preamble)}
	}
	if wire.Version != Version {
		return Image{}, &vm.Error{Kind: vm.InvalidImage, PC: -1, Msg: fmt.Sprintf("version mismatch: image is %q, runtime is %q", wire.Version, Version)}
	}
	return Image{
		Preamble:     wire.Preamble,
		Version:      wire.Version,
		Config:       wire.Config.applyDefaults(),
		Instructions: wire.Instructions,
	}, nil
}

// DecodeBytes is a convenience wrapper around Decode.
func DecodeBytes(data []byte) (Image, error) {
	return Decode(bytes.NewReader(data))
}
