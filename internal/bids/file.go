// file.go - JSON bid files.
//
//	{
//	  "modulus": 4292870399,
//	  "bids": [
//	    {"bidder": "0x5aAe...eAed", "encrypted_amount": "0x0a1b2c3d"}
//	  ]
//	}

package bids

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"sealedbid/internal/trace"
)

var ErrAddress = errors.New("bids: invalid bidder address")

// Entry is one sealed bid as stored on disk.
type Entry struct {
	Bidder          common.Address `json:"bidder"`
	EncryptedAmount hexutil.Bytes  `json:"encrypted_amount"`
}

// File is a set of sealed bids under one public modulus.
type File struct {
	Modulus uint64  `json:"modulus"`
	Bids    []Entry `json:"bids"`
}

type entryJSON struct {
	Bidder          string `json:"bidder"`
	EncryptedAmount string `json:"encrypted_amount"`
}

// UnmarshalJSON rejects addresses that are not 20 bytes of hex, which
// common.Address would otherwise silently truncate or pad. The ciphertext
// prefix is optional.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !common.IsHexAddress(raw.Bidder) {
		return fmt.Errorf("%w: %q", ErrAddress, raw.Bidder)
	}
	ct, err := decodeHex(raw.EncryptedAmount)
	if err != nil {
		return fmt.Errorf("encrypted_amount: %w", err)
	}
	e.Bidder = common.HexToAddress(raw.Bidder)
	e.EncryptedAmount = ct
	return nil
}

// decodeHex decodes a ciphertext with or without its 0x prefix.
func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// Load reads and parses a bid file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bid file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bid file: %w", err)
	}
	return &f, nil
}

// Save writes the bid file as indented JSON.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bid file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write bid file: %w", err)
	}
	return nil
}

// Add seals amount for bidder and appends it.
func (f *File) Add(bidder common.Address, amount, nonce uint64, limbs int, pub PublicKey) error {
	if pub.Modulus != f.Modulus {
		return fmt.Errorf("bids: key modulus %d does not match file modulus %d", pub.Modulus, f.Modulus)
	}
	ct, err := Seal(amount, nonce, limbs, pub)
	if err != nil {
		return err
	}
	f.Bids = append(f.Bids, Entry{Bidder: bidder, EncryptedAmount: ct})
	return nil
}

// TraceBids converts the entries to generator inputs.
func (f *File) TraceBids() []trace.Bid {
	out := make([]trace.Bid, len(f.Bids))
	for i, e := range f.Bids {
		out[i] = trace.Bid{
			Address:    e.Bidder.Bytes(),
			Ciphertext: []byte(e.EncryptedAmount),
		}
	}
	return out
}
