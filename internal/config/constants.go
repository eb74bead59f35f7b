package config

import "time"

// Target Networks
const (
	NetworkHardhat     = "hardhat"
	NetworkLiskSepolia = "liskSepolia"
)

// Chain IDs
const (
	HardhatChainID     = 31337
	LiskSepoliaChainID = 4202
)

// Contract addresses per network.
const (
	HardhatContractAddress     = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	LiskSepoliaContractAddress = "0x9aD20ACF1E3592efF473B510603f5f647994cE9b"
)

// RPC endpoints per network.
const (
	HardhatRPCURL     = "http://127.0.0.1:8545"
	LiskSepoliaRPCURL = "https://rpc.sepolia-api.lisk.com"

	LiskSepoliaExplorerURL = "https://sepolia-blockscout.lisk.com"
)

// Content store (IPFS-backed).
const (
	MaxUploadBytes    = 5 * 1024 * 1024 // 5 MiB
	IPFSGatewayFormat = "https://%CID%.ipfs.w3s.link"
	PlaceholderImage  = "/placeholder.svg"

	StoreSpaceName      = "vigia"
	StoreRequestTimeout = 30 * time.Second
	RateLimitStore      = 2 // requests per second against the content store
)

// AllowedImageTypes is the MIME allow-list for report photos.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ReportCategories are the category strings accepted by the ledger contract.
var ReportCategories = []string{"Bache", "Semáforo", "Alcantarilla", "Alumbrado", "Otro"}

// Report statuses as stored by the ledger contract.
const (
	StatusUnverified        = "Sin verificar"
	StatusNeedsConfirmation = "Necesita confirmación"
	StatusVerified          = "Verificado"
	StatusRejected          = "Rechazado"
)

// Status pin colors derived for display.
const (
	ColorVerified = "#10B981"
	ColorPending  = "#F59E0B"
	ColorNeutral  = "#6B7280"

	// PendingConfirmationThreshold is the confirmation count at which an
	// unverified report is rendered with the pending color.
	PendingConfirmationThreshold = 2
)

// EIP-1193 / EIP-1474 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnsupportedMethod = 4200
	CodeUnrecognizedChain = 4902
)

// Receipt polling
const (
	ReceiptPollInterval = 2 * time.Second
	ReceiptPollTimeout  = 3 * time.Minute
)

// Read model
const (
	FeedRefreshInterval = 30 * time.Second
)

// HTTP server
const (
	ServerReadTimeout  = 15 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ShutdownTimeout    = 10 * time.Second
)

// HTTP client pooling for store and bridge requests.
const (
	HTTPMaxConnsPerHost     = 10
	HTTPMaxIdleConnsPerHost = 5
	HTTPMaxIdleConns        = 20
)

// Logging
const (
	LogMaxAgeDays  = 14
	LogFilePrefix  = "vigia-"
	LogFilePattern = "vigia-%s.log" // date (YYYY-MM-DD)
)

// Database
const (
	DBBusyTimeout = 5000 // milliseconds
)

// API error codes returned in error envelopes.
const (
	ErrorInvalidRequest      = "INVALID_REQUEST"
	ErrorValidation          = "VALIDATION_FAILED"
	ErrorNoSession           = "NO_ACTIVE_SESSION"
	ErrorNoProvider          = "PROVIDER_NOT_FOUND"
	ErrorUserRejected        = "USER_REJECTED"
	ErrorProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrorNetworkMismatch     = "NETWORK_MISMATCH"
	ErrorUploadFailed        = "UPLOAD_FAILED"
	ErrorTransactionFailed   = "TRANSACTION_FAILED"
	ErrorSubmitInFlight      = "SUBMISSION_IN_FLIGHT"
	ErrorReportNotFound      = "REPORT_NOT_FOUND"
	ErrorInternal            = "INTERNAL_ERROR"
)
