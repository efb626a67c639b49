package contracts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/verichains/dailygm/abiutils"
)

const (
	BaseChainID        uint64 = 8453
	BaseSepoliaChainID uint64 = 84532
)

// Deployment holds the well-known addresses and links of a supported chain.
type Deployment struct {
	ChainID     uint64
	Name        string
	DailyGM     common.Address
	ExplorerURL string
	RPCUrl      string

	// WriteSelectors are the raw selectors the deployed contract accepts for
	// the GM write methods, in place of the ones derived from DailyGMSigs.
	WriteSelectors map[string]abiutils.MethodId
}

var deployments = map[uint64]Deployment{
	BaseChainID: {
		ChainID:     BaseChainID,
		Name:        "base",
		DailyGM:     common.HexToAddress("0xf5b0E9cFD956929cFB2F168667CC392c29163535"),
		ExplorerURL: "https://basescan.org",
		RPCUrl:      "https://mainnet.base.org",
		WriteSelectors: map[string]abiutils.MethodId{
			MethodSayGM: {0x98, 0x46, 0xcd, 0x9e},
		},
	},
	BaseSepoliaChainID: {
		ChainID:     BaseSepoliaChainID,
		Name:        "base-sepolia",
		ExplorerURL: "https://sepolia.basescan.org",
		RPCUrl:      "https://sepolia.base.org",
	},
}

// LookupDeployment returns the registered deployment for chainID.
func LookupDeployment(chainID uint64) (Deployment, error) {
	d, ok := deployments[chainID]
	if !ok {
		return Deployment{}, fmt.Errorf("unsupported chain id %d", chainID)
	}
	return d, nil
}

// lookupDeploymentByAddress returns the deployment hosting the DailyGM contract at address.
func lookupDeploymentByAddress(address common.Address) (Deployment, bool) {
	if address == (common.Address{}) {
		return Deployment{}, false
	}
	for _, d := range deployments {
		if d.DailyGM == address {
			return d, true
		}
	}
	return Deployment{}, false
}
