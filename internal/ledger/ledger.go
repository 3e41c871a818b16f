// ledger.go - Persistent, append-only ledger of settled auctions.
//
// Each record is a verified proof together with the public values it binds.
// A bid commitment can be settled once; the ledger is persisted as a single
// JSON file.

package ledger

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"sealedbid/internal/columns"
	"sealedbid/internal/snark"
)

var ErrSettled = errors.New("ledger: auction already settled")

// Record is one settled auction.
type Record struct {
	ID         string         `json:"id"`
	Commitment uint64         `json:"commitment"`
	Winner     common.Address `json:"winner"`
	Amount     uint64         `json:"amount"`
	Result     *snark.Result  `json:"result"`
}

// NewRecord derives the summary fields of a proof result. The ID is the
// blake3 digest of the proof bytes.
func NewRecord(res *snark.Result) (*Record, error) {
	if len(res.Public) != columns.NumPublic {
		return nil, fmt.Errorf("ledger: %d public values, want %d", len(res.Public), columns.NumPublic)
	}
	pub, err := columns.PublicFromSlice(res.Public)
	if err != nil {
		return nil, err
	}
	var winner common.Address
	for i, b := range pub.WinnerAddress {
		winner[i] = byte(b)
	}
	id := blake3.Sum256(res.Proof)
	return &Record{
		ID:         hex.EncodeToString(id[:]),
		Commitment: pub.Commitment,
		Winner:     winner,
		Amount:     pub.WinnerAmount,
		Result:     res,
	}, nil
}

// Ledger is the append-only list of settled auctions. It is safe for
// concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	records []*Record
	log     zerolog.Logger
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{records: make([]*Record, 0), log: zerolog.Nop()}
}

// SetLogger sets the logger used for append events.
func (l *Ledger) SetLogger(log zerolog.Logger) {
	l.log = log
}

// Append verifies res against vk and records it. A commitment that is
// already present is rejected with ErrSettled.
func (l *Ledger) Append(res *snark.Result, vk groth16.VerifyingKey) (*Record, error) {
	rec, err := NewRecord(res)
	if err != nil {
		return nil, err
	}
	if err := snark.Verify(res, vk); err != nil {
		l.log.Warn().Err(err).Uint64("commitment", rec.Commitment).Msg("rejected proof")
		return nil, err
	}
	if err := l.add(rec); err != nil {
		return nil, err
	}
	l.log.Info().Str("id", rec.ID).Uint64("commitment", rec.Commitment).
		Str("winner", rec.Winner.Hex()).Uint64("amount", rec.Amount).Msg("auction settled")
	return rec, nil
}

func (l *Ledger) add(rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasCommitment(rec.Commitment) {
		return fmt.Errorf("%w: commitment %d", ErrSettled, rec.Commitment)
	}
	l.records = append(l.records, rec)
	return nil
}

// HasCommitment reports whether an auction with this commitment is settled.
func (l *Ledger) HasCommitment(cm uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasCommitment(cm)
}

func (l *Ledger) hasCommitment(cm uint64) bool {
	for _, r := range l.records {
		if r.Commitment == cm {
			return true
		}
	}
	return false
}

// Records returns a copy of the record list.
func (l *Ledger) Records() []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Record(nil), l.records...)
}

// SaveToFile saves the ledger as indented JSON, overwriting path.
func (l *Ledger) SaveToFile(path string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(l.records)
}

// LoadFromFile loads a ledger saved by SaveToFile. A missing file yields an
// empty ledger.
func LoadFromFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l := New()
	if err := json.NewDecoder(f).Decode(&l.records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	return l, nil
}
