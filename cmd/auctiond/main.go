// main.go - Command-line driver for sealed-bid auction proofs.
//
// Usage:
//
//	auctiond [-config config.json] <command> [flags]
//
// Commands:
//
//	keygen  -out key.json                        generate a toy decryption key
//	seal    -key key.json -bids bids.json ...    seal one bid into a bid file
//	trace   -key key.json -bids bids.json ...    generate and store the trace
//	check   -key key.json -bids bids.json        evaluate the AIR on the trace
//	prove   -key key.json -bids bids.json ...    prove the auction with Groth16
//	verify  -proof proof.json                    verify and record a proof in the ledger
//
// The key file holds the private exponent; only the modulus and the proof
// leave the auctioneer.

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"sealedbid/internal/air"
	"sealedbid/internal/bids"
	"sealedbid/internal/ledger"
	"sealedbid/internal/snark"
	"sealedbid/internal/trace"
)

type app struct {
	cfg     *Config
	log     *Logger
	metrics *MetricsCollector
}

type command struct {
	name string
	run  func(a *app, args []string) error
}

var commands = []command{
	{"keygen", (*app).keygen},
	{"seal", (*app).seal},
	{"trace", (*app).trace},
	{"check", (*app).check},
	{"prove", (*app).prove},
	{"verify", (*app).verify},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config path] <command> [flags]\ncommands:", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, " %s", c.name)
	}
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.json", "configuration file (created with defaults if missing)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	auditPath := ""
	if cfg.EnableAudit {
		auditPath = cfg.AuditLogPath
	}
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile, auditPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	a := &app{cfg: cfg, log: logger, metrics: NewMetricsCollector()}
	name, args := flag.Arg(0), flag.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(a, args)
		logger.Debug("metrics: %v", a.metrics.GetMetricsSummary())
		if err != nil {
			a.metrics.RecordError(name)
			logger.Fatal("%s: %v", name, err)
		}
		return
	}
	usage()
	os.Exit(2)
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(a.cfg.TimeoutSeconds)*time.Second)
}

// ---- key and bid files ----

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func (a *app) keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "key.json", "private key output")
	fs.Parse(args)

	key, err := bids.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	if err := writeJSON(*out, key, 0600); err != nil {
		return err
	}
	a.log.Info("generated key with modulus %d", key.Modulus)
	a.log.Audit("keygen", map[string]interface{}{"modulus": key.Modulus, "path": *out})
	return nil
}

func (a *app) seal(args []string) error {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	keyPath := fs.String("key", "key.json", "key file (only the public part is used)")
	bidsPath := fs.String("bids", "bids.json", "bid file to append to (created if missing)")
	bidder := fs.String("bidder", "", "bidder address, 0x-prefixed hex")
	amount := fs.Uint64("amount", 0, "bid amount")
	nonce := fs.Uint64("nonce", 0, "nonce in [0, 1000)")
	limbs := fs.Int("limbs", a.cfg.LimbsPerBid, "ciphertext limbs")
	fs.Parse(args)

	if !common.IsHexAddress(*bidder) {
		return fmt.Errorf("%w: %q", bids.ErrAddress, *bidder)
	}
	var key bids.PrivateKey
	if err := readJSON(*keyPath, &key); err != nil {
		return err
	}

	file, err := bids.Load(*bidsPath)
	if errors.Is(err, os.ErrNotExist) {
		file, err = &bids.File{Modulus: key.Modulus}, nil
	}
	if err != nil {
		return err
	}
	if err := file.Add(common.HexToAddress(*bidder), *amount, *nonce, *limbs, key.PublicKey); err != nil {
		return err
	}
	if err := file.Save(*bidsPath); err != nil {
		return err
	}
	a.log.Info("sealed bid %d for %s (%d bids)", len(file.Bids)-1, *bidder, len(file.Bids))
	return nil
}

// generate loads the inputs and builds the trace.
func (a *app) generate(keyPath, bidsPath string) (*trace.Trace, error) {
	var key bids.PrivateKey
	if err := readJSON(keyPath, &key); err != nil {
		return nil, err
	}
	file, err := bids.Load(bidsPath)
	if err != nil {
		return nil, err
	}
	if file.Modulus != key.Modulus {
		return nil, fmt.Errorf("bid file modulus %d does not match key modulus %d", file.Modulus, key.Modulus)
	}

	start := time.Now()
	tr, err := trace.Generate(file.TraceBids(), key.Key())
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTrace(tr, time.Since(start))
	a.log.Info("generated trace: %d bidders, %d rows, height %d", len(file.Bids), tr.Rows, tr.Matrix.Height())
	for _, o := range tr.Outcomes() {
		a.log.Debug("bidder %d %s: amount=%d nonce=%d errored=%t leading=%t",
			o.Bidder, o.Address.Hex(), o.Amount, o.Nonce, o.Errored, o.Leading)
	}
	return tr, nil
}

func (a *app) checkTrace(tr *trace.Trace) error {
	ctx, cancel := a.context()
	defer cancel()

	start := time.Now()
	c := air.Checker{Workers: a.cfg.MaxConcurrency}
	err := c.Check(ctx, tr.Matrix, &tr.Public)
	a.metrics.RecordCheck(time.Since(start))

	var verr *air.ViolationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			a.log.Warn("row %d: %s", v.Row, v.Constraint)
		}
	}
	return err
}

func (a *app) trace(args []string) error {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	keyPath := fs.String("key", "key.json", "private key file")
	bidsPath := fs.String("bids", "bids.json", "bid file")
	out := fs.String("out", "trace.bin", "binary trace output")
	csvOut := fs.String("csv", "", "optional CSV trace output")
	fs.Parse(args)

	tr, err := a.generate(*keyPath, *bidsPath)
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := tr.Matrix.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if *csvOut != "" {
		cf, err := os.Create(*csvOut)
		if err != nil {
			return err
		}
		defer cf.Close()
		if err := tr.Matrix.WriteCSV(cf); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}

	winner, amount := tr.Winner()
	a.log.Info("winner %s with %d, commitment %d", winner.Hex(), amount, tr.Public.Commitment.Uint64())
	return nil
}

func (a *app) check(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	keyPath := fs.String("key", "key.json", "private key file")
	bidsPath := fs.String("bids", "bids.json", "bid file")
	fs.Parse(args)

	tr, err := a.generate(*keyPath, *bidsPath)
	if err != nil {
		return err
	}
	if err := a.checkTrace(tr); err != nil {
		return err
	}
	a.log.Info("all constraints satisfied on %d rows", tr.Matrix.Height())
	return nil
}

func (a *app) prove(args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	keyPath := fs.String("key", "key.json", "private key file")
	bidsPath := fs.String("bids", "bids.json", "bid file")
	out := fs.String("out", "proof.json", "proof output")
	fs.Parse(args)

	tr, err := a.generate(*keyPath, *bidsPath)
	if err != nil {
		return err
	}
	if err := a.checkTrace(tr); err != nil {
		return err
	}

	height := tr.Matrix.Height()
	start := time.Now()
	ccs, err := snark.Compile(height)
	if err != nil {
		return err
	}
	a.metrics.RecordCircuitCompile(time.Since(start))
	a.log.Info("compiled circuit for height %d: %d constraints", height, ccs.GetNbConstraints())

	pk, _, err := snark.SetupOrLoadKeys(ccs, a.cfg.KeyDir, height, a.log.Zerolog())
	if err != nil {
		return err
	}
	start = time.Now()
	res, err := snark.Prove(ccs, pk, tr)
	if err != nil {
		return err
	}
	a.metrics.RecordProofGeneration(time.Since(start))

	if err := writeJSON(*out, res, 0644); err != nil {
		return err
	}
	a.log.Info("wrote proof to %s", *out)
	a.log.Audit("prove", map[string]interface{}{"height": height, "commitment": res.Commitment(), "path": *out})
	return nil
}

func (a *app) verify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	proofPath := fs.String("proof", "proof.json", "proof file")
	fs.Parse(args)

	var res snark.Result
	if err := readJSON(*proofPath, &res); err != nil {
		return err
	}
	_, vkPath := snark.KeyPaths(a.cfg.KeyDir, res.Height)
	vk, err := snark.LoadVerifyingKey(vkPath)
	if err != nil {
		return fmt.Errorf("failed to load verifying key: %w", err)
	}

	l, err := ledger.LoadFromFile(a.cfg.LedgerPath)
	if err != nil {
		return err
	}
	l.SetLogger(a.log.Zerolog())
	rec, err := l.Append(&res, vk)
	if err != nil {
		return err
	}
	if err := l.SaveToFile(a.cfg.LedgerPath); err != nil {
		return err
	}
	a.log.Audit("settle", map[string]interface{}{"id": rec.ID, "winner": rec.Winner.Hex(), "amount": rec.Amount})
	return nil
}
