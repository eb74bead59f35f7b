package models

// Report is a ledger-resident incident record. Created by a successful
// submission transaction, mutated only by ledger-side confirmations,
// never deleted.
type Report struct {
	ID            uint64   `json:"id"`
	Creator       string   `json:"creator"`
	Latitude      string   `json:"latitude"`
	Longitude     string   `json:"longitude"`
	ImageHash     string   `json:"image_hash"` // content identifier, "" = no image
	Description   string   `json:"description"`
	Timestamp     int64    `json:"timestamp"` // seconds since epoch
	Status        string   `json:"status"`
	Confirmations []string `json:"confirmations"`
	Category      string   `json:"category"`
}

// ReportInput is a user-supplied report draft as the contract expects it.
// ImageHash carries the resolved content identifier ("" when no image).
type ReportInput struct {
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	ImageHash   string `json:"image_hash"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// DisplayReport is a Report enriched with display-derived fields.
type DisplayReport struct {
	Report
	Color    string `json:"color"`
	ImageURL string `json:"image_url"`
	Seed     bool   `json:"seed"`
}

// SeedReport is a locally stored fixture record displayed alongside ledger
// reports. Fixture confirmers have no addresses, so confirmations are kept as
// a bare count, and the image is a local asset rather than a content
// identifier.
type SeedReport struct {
	ID                uint64 `json:"id"`
	Creator           string `json:"creator"`
	Latitude          string `json:"latitude"`
	Longitude         string `json:"longitude"`
	ImageURL          string `json:"image_url"`
	Description       string `json:"description"`
	Timestamp         int64  `json:"timestamp"`
	Status            string `json:"status"`
	ConfirmationCount int    `json:"confirmation_count"`
	Category          string `json:"category"`
}

// Submission is the local audit record of a report submission driven
// through this service.
type Submission struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	TxHash      string `json:"tx_hash"`
	CID         string `json:"cid"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// Submission statuses.
const (
	SubmissionPending   = "PENDING"
	SubmissionConfirmed = "CONFIRMED"
	SubmissionFailed    = "FAILED"
)
