package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/models"
	"github.com/vigia-app/vigia/internal/wallet"
)

// ContractCaller is the node-side surface the gateway needs: read-only calls
// and receipt lookups. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway mediates all contact with the incident registry contract. Reads go
// straight to the ledger RPC and need no wallet session; writes are signed by
// the session's provider and block until the transaction is finalized.
type Gateway struct {
	caller   ContractCaller
	abi      abi.ABI
	contract common.Address
}

// NewGateway creates a gateway bound to the contract at the given address.
func NewGateway(caller ContractCaller, contractAddress string) (*Gateway, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}

	parsed, err := parseABI()
	if err != nil {
		return nil, err
	}

	return &Gateway{
		caller:   caller,
		abi:      parsed,
		contract: common.HexToAddress(contractAddress),
	}, nil
}

// ListReports returns every report on the ledger in contract order.
func (g *Gateway) ListReports(ctx context.Context) ([]models.Report, error) {
	out, err := g.call(ctx, "getAllReports")
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new([]contractReport)).(*[]contractReport)
	reports := make([]models.Report, len(raw))
	for i, r := range raw {
		reports[i] = r.toModel()
	}
	return reports, nil
}

// GetReport returns a single report by its ledger identifier.
func (g *Gateway) GetReport(ctx context.Context, id uint64) (models.Report, error) {
	out, err := g.call(ctx, "getReport", new(big.Int).SetUint64(id))
	if err != nil {
		if isRevert(err) {
			return models.Report{}, fmt.Errorf("%w: id %d", config.ErrReportNotFound, id)
		}
		return models.Report{}, err
	}

	raw := *abi.ConvertType(out[0], new(contractReport)).(*contractReport)
	return raw.toModel(), nil
}

// CountReports returns the total number of reports on the ledger.
func (g *Gateway) CountReports(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, "getTotalReports")
	if err != nil {
		return 0, err
	}

	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return total.Uint64(), nil
}

// SubmitReport records a new incident on the ledger through the session's
// provider. It blocks until the transaction is mined and returns its hash.
func (g *Gateway) SubmitReport(ctx context.Context, session *wallet.Session, input models.ReportInput) (string, error) {
	data, err := g.abi.Pack("reportarIncidencia",
		input.Latitude,
		input.Longitude,
		input.ImageHash,
		input.Description,
		input.Category,
	)
	if err != nil {
		return "", fmt.Errorf("pack reportarIncidencia: %w", err)
	}

	return g.execute(ctx, session, data)
}

// ConfirmReport adds the session account's confirmation to an existing report.
// It blocks until the transaction is mined and returns its hash.
func (g *Gateway) ConfirmReport(ctx context.Context, session *wallet.Session, id uint64) (string, error) {
	data, err := g.abi.Pack("validarReporte", new(big.Int).SetUint64(id))
	if err != nil {
		return "", fmt.Errorf("pack validarReporte: %w", err)
	}

	return g.execute(ctx, session, data)
}

// call performs a read-only contract call and unpacks its outputs.
func (g *Gateway) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	result, err := g.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &g.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s returned no data at %s", config.ErrContractMissing, method, g.contract.Hex())
	}

	out, err := g.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// execute sends calldata through the session's provider and waits for the
// resulting receipt.
func (g *Gateway) execute(ctx context.Context, session *wallet.Session, data []byte) (string, error) {
	if session == nil || session.Provider == nil {
		return "", config.ErrNoActiveSession
	}

	tx := map[string]any{
		"from": session.Address,
		"to":   strings.ToLower(g.contract.Hex()),
		"data": hexutil.Encode(data),
	}

	raw, err := session.Provider.Request(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", fmt.Errorf("parse transaction hash: %w", err)
	}

	slog.Info("ledger transaction sent", "txHash", txHash, "from", session.Address)

	receipt, err := g.WaitForReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return txHash, err
	}

	slog.Info("ledger transaction mined",
		"txHash", txHash,
		"block", receipt.BlockNumber,
		"gasUsed", receipt.GasUsed,
	)
	return txHash, nil
}

// WaitForReceipt polls the ledger until the transaction is mined, the context
// is cancelled, or the polling window expires. A mined-but-failed receipt is
// reported as ErrTxReverted.
func (g *Gateway) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(config.ReceiptPollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(config.ReceiptPollTimeout)
	defer deadline.Stop()

	for {
		receipt, err := g.caller.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", config.ErrTxReverted, txHash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s after %s", config.ErrReceiptTimeout, txHash.Hex(), config.ReceiptPollTimeout)
		case <-ticker.C:
		}
	}
}

// isRevert detects a contract-side revert in a call error.
func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "revert")
}
