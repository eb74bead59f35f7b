package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vigia-app/vigia/internal/config"
)

// KeystoreProvider is a signing provider backed by a local go-ethereum
// keystore. It answers the same request surface a browser-injected provider
// would, but signs and broadcasts transactions itself, so there is no prompt
// to reject: every request either succeeds or fails outright.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	passphrase string

	mu       sync.Mutex
	networks map[uint64]config.NetworkDescriptor
	active   config.NetworkDescriptor
	clients  map[uint64]*ethclient.Client
}

// NewKeystoreProvider opens the keystore at dir and registers the given
// networks, activating the first.
func NewKeystoreProvider(dir, passphrase string, networks ...config.NetworkDescriptor) (*KeystoreProvider, error) {
	if len(networks) == 0 {
		return nil, fmt.Errorf("keystore provider needs at least one network")
	}

	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)

	registered := make(map[uint64]config.NetworkDescriptor, len(networks))
	for _, n := range networks {
		registered[n.ChainID] = n
	}

	slog.Info("keystore provider opened",
		"dir", dir,
		"accounts", len(ks.Accounts()),
		"networks", len(registered),
		"activeChainId", networks[0].ChainID,
	)

	return &KeystoreProvider{
		ks:         ks,
		passphrase: passphrase,
		networks:   registered,
		active:     networks[0],
		clients:    make(map[uint64]*ethclient.Client),
	}, nil
}

// Flags returns empty vendor markers: a keystore is a generic local signer.
func (p *KeystoreProvider) Flags() Flags { return Flags{} }

// Request dispatches an EIP-1193-style request against the local keystore.
func (p *KeystoreProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts", "eth_accounts":
		return p.listAccounts()
	case "eth_chainId":
		return p.chainID()
	case "wallet_switchEthereumChain":
		return p.switchChain(params)
	case "wallet_addEthereumChain":
		return p.addChain(params)
	case "eth_sendTransaction":
		return p.sendTransaction(ctx, params)
	default:
		return nil, &RPCError{Code: config.CodeUnsupportedMethod, Message: "unsupported method: " + method}
	}
}

func (p *KeystoreProvider) listAccounts() (json.RawMessage, error) {
	accts := p.ks.Accounts()
	if len(accts) == 0 {
		return nil, fmt.Errorf("keystore holds no accounts")
	}

	addrs := make([]string, len(accts))
	for i, a := range accts {
		addrs[i] = strings.ToLower(a.Address.Hex())
	}
	return json.Marshal(addrs)
}

func (p *KeystoreProvider) chainID() (json.RawMessage, error) {
	p.mu.Lock()
	hex := p.active.ChainIDHex()
	p.mu.Unlock()
	return json.Marshal(hex)
}

// switchChainParams mirrors the wallet_switchEthereumChain parameter object.
type switchChainParams struct {
	ChainID string `json:"chainId"`
}

func (p *KeystoreProvider) switchChain(params []any) (json.RawMessage, error) {
	var req switchChainParams
	if err := decodeParam(params, &req); err != nil {
		return nil, fmt.Errorf("switch chain params: %w", err)
	}

	id, err := hexutil.DecodeUint64(req.ChainID)
	if err != nil {
		return nil, fmt.Errorf("decode chain id %q: %w", req.ChainID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	network, ok := p.networks[id]
	if !ok {
		return nil, &RPCError{
			Code:    config.CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %q", req.ChainID),
		}
	}

	p.active = network
	slog.Info("keystore provider switched chain", "chainId", id, "network", network.Name)
	return json.Marshal(nil)
}

// addChainParams mirrors the wallet_addEthereumChain parameter object.
type addChainParams struct {
	ChainID   string   `json:"chainId"`
	ChainName string   `json:"chainName"`
	RPCURLs   []string `json:"rpcUrls"`
}

func (p *KeystoreProvider) addChain(params []any) (json.RawMessage, error) {
	var req addChainParams
	if err := decodeParam(params, &req); err != nil {
		return nil, fmt.Errorf("add chain params: %w", err)
	}

	id, err := hexutil.DecodeUint64(req.ChainID)
	if err != nil {
		return nil, fmt.Errorf("decode chain id %q: %w", req.ChainID, err)
	}
	if len(req.RPCURLs) == 0 {
		return nil, fmt.Errorf("add chain: no rpc urls for chain %q", req.ChainID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.networks[id]; !exists {
		p.networks[id] = config.NetworkDescriptor{
			ChainID: id,
			Name:    req.ChainName,
			RPCURL:  req.RPCURLs[0],
		}
		slog.Info("keystore provider registered chain", "chainId", id, "network", req.ChainName)
	}

	return json.Marshal(nil)
}

// txParams mirrors the eth_sendTransaction parameter object.
type txParams struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

func (p *KeystoreProvider) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	var req txParams
	if err := decodeParam(params, &req); err != nil {
		return nil, fmt.Errorf("transaction params: %w", err)
	}

	from := common.HexToAddress(req.From)
	to := common.HexToAddress(req.To)

	var data []byte
	if req.Data != "" {
		var err error
		data, err = hexutil.Decode(req.Data)
		if err != nil {
			return nil, fmt.Errorf("decode calldata: %w", err)
		}
	}

	value := big.NewInt(0)
	if req.Value != "" {
		v, err := hexutil.DecodeBig(req.Value)
		if err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
		value = v
	}

	p.mu.Lock()
	network := p.active
	p.mu.Unlock()

	client, err := p.client(network)
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		// Estimation failure usually surfaces the contract's revert reason.
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	chainID := new(big.Int).SetUint64(network.ChainID)
	signed, err := p.ks.SignTxWithPassphrase(accounts.Account{Address: from}, p.passphrase, tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcast transaction: %w", err)
	}

	txHash := signed.Hash().Hex()
	slog.Info("keystore provider broadcast transaction",
		"txHash", txHash,
		"from", from.Hex(),
		"to", to.Hex(),
		"nonce", nonce,
		"chainId", network.ChainID,
	)

	return json.Marshal(txHash)
}

// client returns (dialing lazily) the RPC client for a network.
func (p *KeystoreProvider) client(network config.NetworkDescriptor) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[network.ChainID]; ok {
		return c, nil
	}

	c, err := ethclient.Dial(network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network.RPCURL, err)
	}
	p.clients[network.ChainID] = c
	return c, nil
}

// Close releases all dialed RPC clients.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.Close()
	}
	p.clients = make(map[uint64]*ethclient.Client)
}

// decodeParam re-marshals the first positional param into dst, so callers can
// pass either typed structs or generic maps.
func decodeParam(params []any, dst any) error {
	if len(params) == 0 {
		return fmt.Errorf("missing parameter object")
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
