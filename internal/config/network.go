package config

import "fmt"

// NetworkDescriptor is the immutable description of a ledger network. It is
// used both to verify a session's current chain and to provision the chain on
// a provider that has no record of it (wallet_addEthereumChain).
type NetworkDescriptor struct {
	ChainID          uint64
	Name             string
	RPCURL           string
	CurrencyName     string
	CurrencySymbol   string
	CurrencyDecimals int
	BlockExplorerURL string
	ContractAddress  string
}

// ChainIDHex returns the 0x-prefixed hexadecimal chain identifier expected by
// wallet_switchEthereumChain and wallet_addEthereumChain.
func (n NetworkDescriptor) ChainIDHex() string {
	return fmt.Sprintf("0x%x", n.ChainID)
}

// AddChainParams builds the wallet_addEthereumChain parameter object.
func (n NetworkDescriptor) AddChainParams() map[string]any {
	params := map[string]any{
		"chainId":   n.ChainIDHex(),
		"chainName": n.Name,
		"rpcUrls":   []string{n.RPCURL},
		"nativeCurrency": map[string]any{
			"name":     n.CurrencyName,
			"symbol":   n.CurrencySymbol,
			"decimals": n.CurrencyDecimals,
		},
	}
	if n.BlockExplorerURL != "" {
		params["blockExplorerUrls"] = []string{n.BlockExplorerURL}
	}
	return params
}

// LiskSepoliaNetwork returns the Lisk Sepolia testnet descriptor.
func LiskSepoliaNetwork() NetworkDescriptor {
	return NetworkDescriptor{
		ChainID:          LiskSepoliaChainID,
		Name:             "Lisk Sepolia Testnet",
		RPCURL:           LiskSepoliaRPCURL,
		CurrencyName:     "Sepolia Ether",
		CurrencySymbol:   "ETH",
		CurrencyDecimals: 18,
		BlockExplorerURL: LiskSepoliaExplorerURL,
		ContractAddress:  LiskSepoliaContractAddress,
	}
}

// HardhatNetwork returns the local development network descriptor.
func HardhatNetwork() NetworkDescriptor {
	return NetworkDescriptor{
		ChainID:          HardhatChainID,
		Name:             "Hardhat Network",
		RPCURL:           HardhatRPCURL,
		CurrencyName:     "Ether",
		CurrencySymbol:   "ETH",
		CurrencyDecimals: 18,
		ContractAddress:  HardhatContractAddress,
	}
}
