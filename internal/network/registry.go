// Package network holds the static registry of supported chains and
// their connection endpoints.
package network

import "errors"

// ErrUnsupportedChain is returned when a chain id or network id does
// not match any registry entry.
var ErrUnsupportedChain = errors.New("unsupported chain")

// Mode selects the mainnet or testnet subset of the registry.
type Mode string

const (
	ModeMainnet Mode = "mainnet"
	ModeTestnet Mode = "testnet"
)

// ParseMode returns the Mode for a stored string, defaulting to mainnet.
func ParseMode(s string) Mode {
	if s == string(ModeTestnet) {
		return ModeTestnet
	}
	return ModeMainnet
}

// ID is the logical identifier of a supported network.
type ID string

const (
	Ethereum ID = "ethereum"
	Sepolia  ID = "sepolia"
	Polygon  ID = "polygon"
	Mumbai   ID = "mumbai"
)

// ExplorerEndpoint describes one explorer API source.
// Etherscan-style v2 endpoints take a chainid query parameter and accept
// an API key; blockscout-style fallbacks take neither.
type ExplorerEndpoint struct {
	BaseURL      string
	WantsChainID bool
	AcceptsKey   bool
}

// Network is an immutable description of one supported chain.
type Network struct {
	ID           ID
	Name         string
	ChainID      uint64
	NativeSymbol string
	Mode         Mode

	// RPCURLs is the ordered endpoint list: primary first, then fallbacks.
	RPCURLs []string

	// ExplorerAPIs is the ordered explorer source list: primary first.
	ExplorerAPIs []ExplorerEndpoint

	// ExplorerURL is the human-facing block explorer for browse links.
	ExplorerURL string

	// FaucetURL points at a test-coin faucet; empty on mainnets.
	FaucetURL string
}

// TxURL returns the block explorer page for a transaction hash.
func (n Network) TxURL(hash string) string {
	return n.ExplorerURL + "/tx/" + hash
}

// AddressURL returns the block explorer page for an address.
func (n Network) AddressURL(addr string) string {
	return n.ExplorerURL + "/address/" + addr
}

// networks is the fixed registry, in display order. Mainnet entries come
// before their testnets so ForMode preserves a stable order per mode.
var networks = []Network{
	{
		ID:           Ethereum,
		Name:         "Ethereum",
		ChainID:      1,
		NativeSymbol: "ETH",
		Mode:         ModeMainnet,
		RPCURLs: []string{
			"https://ethereum.publicnode.com",
			"https://rpc.ankr.com/eth",
			"https://eth.llamarpc.com",
		},
		ExplorerAPIs: []ExplorerEndpoint{
			{BaseURL: "https://api.etherscan.io/v2/api", WantsChainID: true, AcceptsKey: true},
			{BaseURL: "https://eth.blockscout.com/api"},
		},
		ExplorerURL: "https://etherscan.io",
	},
	{
		ID:           Polygon,
		Name:         "Polygon",
		ChainID:      137,
		NativeSymbol: "MATIC",
		Mode:         ModeMainnet,
		RPCURLs: []string{
			"https://polygon-rpc.com",
			"https://rpc.ankr.com/polygon",
			"https://polygon.llamarpc.com",
		},
		ExplorerAPIs: []ExplorerEndpoint{
			{BaseURL: "https://api.polygonscan.com/v2/api", WantsChainID: true, AcceptsKey: true},
			{BaseURL: "https://polygon.blockscout.com/api"},
		},
		ExplorerURL: "https://polygonscan.com",
	},
	{
		ID:           Sepolia,
		Name:         "Sepolia",
		ChainID:      11155111,
		NativeSymbol: "ETH",
		Mode:         ModeTestnet,
		RPCURLs: []string{
			"https://rpc.sepolia.org",
			"https://sepolia.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
		},
		ExplorerAPIs: []ExplorerEndpoint{
			{BaseURL: "https://api-sepolia.etherscan.io/v2/api", WantsChainID: true, AcceptsKey: true},
			{BaseURL: "https://sepolia.blockscout.com/api"},
		},
		ExplorerURL: "https://sepolia.etherscan.io",
		FaucetURL:   "https://sepoliafaucet.com",
	},
	{
		ID:           Mumbai,
		Name:         "Mumbai",
		ChainID:      80001,
		NativeSymbol: "MATIC",
		Mode:         ModeTestnet,
		RPCURLs: []string{
			"https://rpc-mumbai.maticvigil.com",
			"https://matic-mumbai.chainstacklabs.com",
		},
		ExplorerAPIs: []ExplorerEndpoint{
			{BaseURL: "https://api-testnet.polygonscan.com/v2/api", WantsChainID: true, AcceptsKey: true},
		},
		ExplorerURL: "https://mumbai.polygonscan.com",
		FaucetURL:   "https://faucet.polygon.technology",
	},
}

// All returns every registered network in registry order.
func All() []Network {
	out := make([]Network, len(networks))
	copy(out, networks)
	return out
}

// ByID looks up a network by its logical identifier.
func ByID(id ID) (Network, bool) {
	for _, n := range networks {
		if n.ID == id {
			return n, true
		}
	}
	return Network{}, false
}

// FromChainID looks up a network by its chain id.
func FromChainID(chainID uint64) (Network, bool) {
	for _, n := range networks {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return Network{}, false
}

// ForMode returns the ordered subset of networks for the given mode.
func ForMode(mode Mode) []Network {
	var out []Network
	for _, n := range networks {
		if n.Mode == mode {
			out = append(out, n)
		}
	}
	return out
}
