// wllt-cli is the command-line interface to the wallet engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/wllt-labs/wllt-core/config"
	"github.com/wllt-labs/wllt-core/internal/chainio"
	"github.com/wllt-labs/wllt-core/internal/dispatch"
	"github.com/wllt-labs/wllt-core/internal/engine"
	wlog "github.com/wllt-labs/wllt-core/internal/log"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/storage"
	"github.com/wllt-labs/wllt-core/internal/vault"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := ""
	configPath := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--config="):
			configPath = args[0][len("--config="):]
			args = args[1:]
		default:
			goto dispatchCmd
		}
	}

dispatchCmd:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg := loadConfig(dataDir, configPath)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "init":
		cmdInit(cfg)
		return
	case "help", "--help", "-h":
		usage()
		return
	}

	w, db := openWallet(cfg)
	defer db.Close()

	switch cmd {
	case "create":
		cmdCreate(w)
	case "import":
		cmdImport(w, cmdArgs)
	case "delete":
		cmdDelete(w)
	case "address":
		cmdAddress(w)
	case "seed":
		cmdSeed(w)
	case "mode":
		cmdMode(w, cmdArgs)
	case "sync":
		cmdSync(w)
	case "balances":
		cmdBalances(w)
	case "tokens":
		cmdTokens(w)
	case "history":
		cmdHistory(w)
	case "send":
		cmdSend(w, cmdArgs)
	case "faucet":
		cmdFaucet(w, cmdArgs)
	case "pin":
		cmdPIN(w, cmdArgs)
	case "request":
		cmdRequest(w, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: wllt-cli [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.wllt)
  --config <path>     Config file (default: <datadir>/wllt.conf)

Commands:
  init                            Write a default config file
  create                          Create a new wallet
  import [--mnemonic "..."]       Import a wallet from a mnemonic
  delete                          Delete the wallet and its secrets
  address                         Show the wallet address
  seed                            Reveal the seed phrase for backup
  mode [mainnet|testnet]          Show or switch the network mode
  sync                            Refresh balances, tokens and history
  balances                        Show native balances
  tokens                          Show token holdings
  history                         Show transaction history
  send --network <id> --to <addr> --amount <amt> [--token <contract>]
                                  Send native coins or tokens
  faucet --network <id>           Show the test-coin faucet link
  pin set|verify                  Manage the wallet PIN
  request --method <m> --chain-id <n> [--params '<json>']
                                  Handle a remote signing request
`)
}

// loadConfig resolves the effective configuration from defaults, the
// config file and global flags.
func loadConfig(dataDir, configPath string) *config.Config {
	cfg := config.Default()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	values, err := config.LoadFile(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		fatal("apply config: %v", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir // the flag wins over the file
	}
	if err := config.Validate(cfg); err != nil {
		fatal("invalid config: %v", err)
	}
	return cfg
}

// openWallet opens storage and builds the engine. The vault password is
// prompted on every run; it never touches the config file.
func openWallet(cfg *config.Config) (*engine.Wallet, storage.DB) {
	if err := wlog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}
	if err := os.MkdirAll(cfg.DBDir(), 0700); err != nil {
		fatal("create data dir: %v", err)
	}

	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		fatal("open storage: %v", err)
	}

	password, err := readPassword("Vault password: ")
	if err != nil {
		db.Close()
		fatal("read password: %v", err)
	}

	v := vault.New(db, password)
	rpc := chainio.NewRPCClient(time.Duration(cfg.Timeouts.RPCSeconds) * time.Second)
	explorer := chainio.NewExplorerClient(time.Duration(cfg.Timeouts.ExplorerSeconds)*time.Second, cfg.Explorer.APIKeys())

	w, err := engine.New(v, rpc, explorer)
	if err != nil {
		db.Close()
		fatal("open wallet: %v", err)
	}
	return w, db
}

// ── commands ────────────────────────────────────────────────────────────

func cmdInit(cfg *config.Config) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		fatal("create data dir: %v", err)
	}
	path := cfg.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		fatal("config file already exists: %s", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		fatal("write config: %v", err)
	}
	fmt.Printf("Wrote %s\n", path)
}

func cmdCreate(w *engine.Wallet) {
	phrase, err := w.Create()
	if err != nil {
		fatal("create wallet: %v", err)
	}
	addr, err := w.Address()
	if err != nil {
		fatal("read address: %v", err)
	}
	fmt.Printf("Address: %s\n\n", addr.Hex())
	fmt.Println("Write down the seed phrase and keep it offline. Anyone")
	fmt.Println("holding it controls the wallet:")
	fmt.Printf("\n  %s\n", phrase)
}

func cmdImport(w *engine.Wallet, args []string) {
	mnemonic := flagValue(args, "--mnemonic")
	if mnemonic == "" {
		line, err := readPassword("Seed phrase: ")
		if err != nil {
			fatal("read seed phrase: %v", err)
		}
		mnemonic = string(line)
	}
	if err := w.Import(mnemonic); err != nil {
		fatal("import wallet: %v", err)
	}
	addr, err := w.Address()
	if err != nil {
		fatal("read address: %v", err)
	}
	fmt.Printf("Imported: %s\n", addr.Hex())
}

func cmdDelete(w *engine.Wallet) {
	fmt.Fprint(os.Stderr, "Type 'delete' to remove the wallet and its secrets: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "delete" {
		fatal("aborted")
	}
	if err := w.Delete(); err != nil {
		fatal("delete wallet: %v", err)
	}
	fmt.Println("Wallet deleted.")
}

func cmdAddress(w *engine.Wallet) {
	addr, err := w.Address()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(addr.Hex())
}

func cmdSeed(w *engine.Wallet) {
	phrase, err := w.SeedPhrase()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(phrase)
}

func cmdMode(w *engine.Wallet, args []string) {
	if len(args) == 0 {
		fmt.Println(w.NetworkMode())
		return
	}
	mode := network.ParseMode(args[0])
	if string(mode) != args[0] {
		fatal("mode must be mainnet or testnet")
	}
	if err := w.SetNetworkMode(mode); err != nil {
		fatal("switch mode: %v", err)
	}
	fmt.Printf("Mode: %s\n", mode)
}

func cmdSync(w *engine.Wallet) {
	if err := w.Sync(context.Background()); err != nil {
		fatal("sync: %v", err)
	}
	fmt.Printf("Synced at %s\n", w.LastSync().Format(time.RFC3339))
}

func cmdBalances(w *engine.Wallet) {
	balances := w.Balances()
	if len(balances) == 0 {
		fmt.Println("No balances. Run 'wllt-cli sync' first.")
		return
	}
	for _, b := range balances {
		fmt.Printf("%-10s %s %s\n", b.Network, b.Amount, b.Symbol)
	}
}

func cmdTokens(w *engine.Wallet) {
	tokens := w.Tokens()
	if len(tokens) == 0 {
		fmt.Println("No tokens.")
		return
	}
	for _, t := range tokens {
		fmt.Printf("%-10s %s %s (%s)\n", t.Network, t.Amount, t.Symbol, t.Contract)
	}
}

func cmdHistory(w *engine.Wallet) {
	history := w.Transactions()
	if len(history) == 0 {
		fmt.Println("No transactions.")
		return
	}
	for _, tx := range history {
		dir := "out"
		if tx.Incoming {
			dir = "in"
		}
		when := time.Unix(tx.Timestamp, 0).UTC().Format("2006-01-02 15:04")
		fmt.Printf("%s  %-10s %-3s %s %s  %s\n", when, tx.Network, dir, tx.Amount, tx.Symbol, tx.Hash)
	}
}

func cmdSend(w *engine.Wallet, args []string) {
	netID := flagValue(args, "--network")
	to := flagValue(args, "--to")
	amount := flagValue(args, "--amount")
	token := flagValue(args, "--token")
	if netID == "" || to == "" || amount == "" {
		fatal("Usage: wllt-cli send --network <id> --to <addr> --amount <amt> [--token <contract>]")
	}

	ctx := context.Background()
	var (
		hash string
		err  error
	)
	if token != "" {
		hash, err = w.SendToken(ctx, network.ID(netID), token, to, amount)
	} else {
		hash, err = w.SendNative(ctx, network.ID(netID), to, amount)
	}
	if err != nil {
		fatal("send: %v", err)
	}
	fmt.Printf("Submitted: %s\n", hash)
	if net, ok := network.ByID(network.ID(netID)); ok {
		fmt.Printf("Explorer:  %s\n", net.TxURL(hash))
	}
}

func cmdFaucet(w *engine.Wallet, args []string) {
	netID := flagValue(args, "--network")
	if netID == "" {
		fatal("Usage: wllt-cli faucet --network <id>")
	}
	url := w.FaucetURL(network.ID(netID))
	if url == "" {
		fatal("no faucet for network %s", netID)
	}
	fmt.Println(url)
}

func cmdPIN(w *engine.Wallet, args []string) {
	if len(args) < 1 {
		fatal("Usage: wllt-cli pin set|verify")
	}
	switch args[0] {
	case "set":
		pin, err := readPassword("New PIN: ")
		if err != nil {
			fatal("read pin: %v", err)
		}
		again, err := readPassword("Repeat PIN: ")
		if err != nil {
			fatal("read pin: %v", err)
		}
		if string(pin) != string(again) {
			fatal("PINs do not match")
		}
		if err := w.SetPIN(string(pin)); err != nil {
			fatal("set pin: %v", err)
		}
		fmt.Println("PIN set.")
	case "verify":
		pin, err := readPassword("PIN: ")
		if err != nil {
			fatal("read pin: %v", err)
		}
		ok, err := w.VerifyPIN(string(pin))
		if err != nil {
			fatal("verify pin: %v", err)
		}
		if !ok {
			fatal("wrong PIN")
		}
		fmt.Println("OK")
	default:
		fatal("Usage: wllt-cli pin set|verify")
	}
}

func cmdRequest(w *engine.Wallet, args []string) {
	method := flagValue(args, "--method")
	chainIDStr := flagValue(args, "--chain-id")
	params := flagValue(args, "--params")
	if method == "" {
		fatal("Usage: wllt-cli request --method <m> --chain-id <n> [--params '<json>']")
	}

	var chainID uint64
	if chainIDStr != "" {
		if _, err := fmt.Sscanf(chainIDStr, "%d", &chainID); err != nil {
			fatal("invalid chain id: %v", err)
		}
	}
	if params == "" {
		params = "[]"
	}

	d := dispatch.New(w)
	result, err := d.Handle(context.Background(), dispatch.Request{
		Method:  method,
		ChainID: chainID,
		Params:  json.RawMessage(params),
	})
	if err != nil {
		fatal("request: %v", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		fatal("encode result: %v", err)
	}
	fmt.Println(string(out))
}

// ── helpers ─────────────────────────────────────────────────────────────

// flagValue scans args for "--name value" or "--name=value".
func flagValue(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(args[i], name+"=") {
			return args[i][len(name)+1:]
		}
	}
	return ""
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
