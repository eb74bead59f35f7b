package wallet

import (
	"fmt"
	"log/slog"
)

// Entry pairs a discovered provider with its display label.
type Entry struct {
	Label    string
	Provider Provider
}

// Discover enumerates and labels the providers the host exposes. It is
// read-only and idempotent so callers can rescan at will. A nil host or a
// host with no providers yields an empty result, never an error.
func Discover(host Host) []Entry {
	if host == nil {
		return nil
	}

	providers := host.Providers()
	entries := make([]Entry, 0, len(providers))
	seen := make(map[string]int, len(providers))

	for i, p := range providers {
		label := classify(p.Flags(), i, len(providers))
		seen[label]++
		if n := seen[label]; n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		entries = append(entries, Entry{Label: label, Provider: p})
	}

	slog.Debug("providers discovered", "count", len(entries))
	return entries
}

// classify maps vendor flags to a display label, known vendors first.
// MetaMask forks set both isMetaMask and their own flag, so Rabby wins
// the tie.
func classify(f Flags, index, total int) string {
	switch {
	case f.MetaMask && !f.Rabby:
		return "MetaMask"
	case f.Rabby:
		return "Rabby"
	case f.CoinbaseWallet:
		return "Coinbase Wallet"
	case f.Trust:
		return "Trust Wallet"
	}
	if total > 1 {
		return fmt.Sprintf("Wallet %d", index+1)
	}
	return "Browser Wallet"
}
