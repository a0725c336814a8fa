package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"VestLedger/internal/ledger"
)

// parseAccount decodes a 64-character hex account identifier.
func parseAccount(s string) (ledger.Account, error) {
	var account ledger.Account

	data, err := hex.DecodeString(s)
	if err != nil || len(data) != 32 {
		return account, fmt.Errorf("invalid account: %q", s)
	}

	copy(account[:], data)

	return account, nil
}

// parseAsset decodes a 64-character hex asset identifier.
func parseAsset(s string) (ledger.Asset, error) {
	var asset ledger.Asset

	data, err := hex.DecodeString(s)
	if err != nil || len(data) != 32 {
		return asset, fmt.Errorf("invalid asset: %q", s)
	}

	copy(asset[:], data)

	return asset, nil
}

// parseScheduleKey extracts (beneficiary, id) from the request path.
// Writes 400 and returns ok=false on malformed input.
func parseScheduleKey(w http.ResponseWriter, r *http.Request) (ledger.Account, uint64, bool) {
	beneficiary, err := parseAccount(r.PathValue("beneficiary"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return ledger.Account{}, 0, false
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid schedule id: %q", r.PathValue("id")))
		return ledger.Account{}, 0, false
	}

	return beneficiary, id, true
}

// parseCreateRequest validates and decodes the identifiers of a create request.
// Amount and timing invariants are enforced by the ledger itself.
func parseCreateRequest(req *createRequest) (ledger.Account, ledger.Asset, error) {
	beneficiary, err := parseAccount(req.Beneficiary)
	if err != nil {
		return ledger.Account{}, ledger.Asset{}, err
	}

	asset, err := parseAsset(req.Asset)
	if err != nil {
		return ledger.Account{}, ledger.Asset{}, err
	}

	return beneficiary, asset, nil
}

// summaryResponse renders a schedule summary for JSON output.
func summaryResponse(s *ledger.Summary) map[string]any {
	return map[string]any{
		"beneficiary":   hex.EncodeToString(s.Beneficiary[:]),
		"id":            s.ID,
		"asset":         hex.EncodeToString(s.Asset[:]),
		"totalAmount":   s.TotalAmount,
		"start":         s.Start,
		"cliffDuration": s.CliffDuration,
		"vestDuration":  s.VestDuration,
		"released":      s.Released,
		"vested":        s.Vested,
		"releasable":    s.Releasable,
		"revocable":     s.Revocable,
		"revoked":       s.Revoked,
		"cliffPassed":   s.CliffPassed,
		"complete":      s.Complete,
		"createdBy":     hex.EncodeToString(s.CreatedBy[:]),
		"createdAt":     s.CreatedAt,
	}
}
