package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vigia-app/vigia/internal/models"
)

// contractABI is the incident registry contract interface. Field and function
// names mirror the deployed contract.
const contractABI = `[
  {
    "type": "function",
    "name": "reportarIncidencia",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_latitud", "type": "string"},
      {"name": "_longitud", "type": "string"},
      {"name": "_imageHash", "type": "string"},
      {"name": "_descripcion", "type": "string"},
      {"name": "_categoria", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "validarReporte",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "_id", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getAllReports",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {
        "name": "",
        "type": "tuple[]",
        "components": [
          {"name": "id", "type": "uint256"},
          {"name": "creador", "type": "address"},
          {"name": "latitud", "type": "string"},
          {"name": "longitud", "type": "string"},
          {"name": "imageHash", "type": "string"},
          {"name": "descripcion", "type": "string"},
          {"name": "timestamp", "type": "uint256"},
          {"name": "estado", "type": "string"},
          {"name": "confirmaciones", "type": "address[]"},
          {"name": "categoria", "type": "string"}
        ]
      }
    ]
  },
  {
    "type": "function",
    "name": "getReport",
    "stateMutability": "view",
    "inputs": [{"name": "_id", "type": "uint256"}],
    "outputs": [
      {
        "name": "",
        "type": "tuple",
        "components": [
          {"name": "id", "type": "uint256"},
          {"name": "creador", "type": "address"},
          {"name": "latitud", "type": "string"},
          {"name": "longitud", "type": "string"},
          {"name": "imageHash", "type": "string"},
          {"name": "descripcion", "type": "string"},
          {"name": "timestamp", "type": "uint256"},
          {"name": "estado", "type": "string"},
          {"name": "confirmaciones", "type": "address[]"},
          {"name": "categoria", "type": "string"}
        ]
      }
    ]
  },
  {
    "type": "function",
    "name": "getTotalReports",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

// contractReport mirrors the contract's report tuple layout.
type contractReport struct {
	Id             *big.Int
	Creador        common.Address
	Latitud        string
	Longitud       string
	ImageHash      string
	Descripcion    string
	Timestamp      *big.Int
	Estado         string
	Confirmaciones []common.Address
	Categoria      string
}

// toModel converts a contract tuple into the service's report shape.
func (c contractReport) toModel() models.Report {
	confirmations := make([]string, len(c.Confirmaciones))
	for i, addr := range c.Confirmaciones {
		confirmations[i] = strings.ToLower(addr.Hex())
	}

	return models.Report{
		ID:            c.Id.Uint64(),
		Creator:       strings.ToLower(c.Creador.Hex()),
		Latitude:      c.Latitud,
		Longitude:     c.Longitud,
		ImageHash:     c.ImageHash,
		Description:   c.Descripcion,
		Timestamp:     c.Timestamp.Int64(),
		Status:        c.Estado,
		Confirmations: confirmations,
		Category:      c.Categoria,
	}
}

// parseABI parses the contract interface once at gateway construction.
func parseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse contract abi: %w", err)
	}
	return parsed, nil
}
