// Package client is a Go client for the vesting ledger HTTP API.
package client

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"VestLedger/internal/ledger"
)

// Client connects to a vesting ledger node via HTTP.
type Client struct {
	baseURL    string       // baseURL is "http://" + node address
	adminToken string       // adminToken authorizes privileged calls, may be empty
	http       *http.Client // http is the underlying HTTP client
}

// New creates a client for the node at nodeAddr (e.g. "127.0.0.1:8080").
// adminToken may be empty for read-only and release-only use.
func New(nodeAddr, adminToken string) *Client {
	return &Client{
		baseURL:    "http://" + nodeAddr,
		adminToken: adminToken,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateParams holds the arguments for creating a schedule.
type CreateParams struct {
	Beneficiary   ledger.Account
	Asset         ledger.Asset
	TotalAmount   uint64
	Start         uint64
	CliffDuration uint64
	VestDuration  uint64
	Revocable     bool
}

// ScheduleSummary is the read-only projection returned by the API.
type ScheduleSummary struct {
	Beneficiary   string `json:"beneficiary"`
	ID            uint64 `json:"id"`
	Asset         string `json:"asset"`
	TotalAmount   uint64 `json:"totalAmount"`
	Start         uint64 `json:"start"`
	CliffDuration uint64 `json:"cliffDuration"`
	VestDuration  uint64 `json:"vestDuration"`
	Released      uint64 `json:"released"`
	Vested        uint64 `json:"vested"`
	Releasable    uint64 `json:"releasable"`
	Revocable     bool   `json:"revocable"`
	Revoked       bool   `json:"revoked"`
	CliffPassed   bool   `json:"cliffPassed"`
	Complete      bool   `json:"complete"`
	CreatedBy     string `json:"createdBy"`
	CreatedAt     uint64 `json:"createdAt"`
}

// Status holds the node status.
type Status struct {
	Height    uint64 `json:"height"`
	Schedules uint64 `json:"schedules"`
	Paused    bool   `json:"paused"`
}

// CreateSchedule creates a vesting schedule and returns its id. Admin only.
func (c *Client) CreateSchedule(p CreateParams) (uint64, error) {
	body := map[string]any{
		"beneficiary":   hex.EncodeToString(p.Beneficiary[:]),
		"asset":         hex.EncodeToString(p.Asset[:]),
		"totalAmount":   p.TotalAmount,
		"start":         p.Start,
		"cliffDuration": p.CliffDuration,
		"vestDuration":  p.VestDuration,
		"revocable":     p.Revocable,
	}

	var result struct {
		ID uint64 `json:"id"`
	}

	if err := c.do("POST", "/schedules", body, &result); err != nil {
		return 0, err
	}

	return result.ID, nil
}

// Release pays out the releasable amount of a schedule.
// Returns the amount released.
func (c *Client) Release(beneficiary ledger.Account, id uint64) (uint64, error) {
	var result struct {
		Released uint64 `json:"released"`
	}

	if err := c.do("POST", schedulePath(beneficiary, id)+"/release", nil, &result); err != nil {
		return 0, err
	}

	return result.Released, nil
}

// Revoke terminates a revocable schedule. Admin only.
func (c *Client) Revoke(beneficiary ledger.Account, id uint64) error {
	return c.do("POST", schedulePath(beneficiary, id)+"/revoke", nil, nil)
}

// Summary fetches the projection of one schedule.
func (c *Client) Summary(beneficiary ledger.Account, id uint64) (*ScheduleSummary, error) {
	var result ScheduleSummary

	if err := c.do("GET", schedulePath(beneficiary, id), nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// List fetches the projections of all schedules of a beneficiary.
func (c *Client) List(beneficiary ledger.Account) ([]ScheduleSummary, error) {
	var result struct {
		Schedules []ScheduleSummary `json:"schedules"`
	}

	if err := c.do("GET", "/schedules/"+hex.EncodeToString(beneficiary[:]), nil, &result); err != nil {
		return nil, err
	}

	return result.Schedules, nil
}

// AssetCommitted fetches the running committed total for an asset.
func (c *Client) AssetCommitted(asset ledger.Asset) (uint64, error) {
	var result struct {
		Committed uint64 `json:"committed"`
	}

	if err := c.do("GET", "/assets/"+hex.EncodeToString(asset[:]), nil, &result); err != nil {
		return 0, err
	}

	return result.Committed, nil
}

// Balance fetches an account's treasury balance for an asset.
func (c *Client) Balance(asset ledger.Asset, account ledger.Account) (uint64, error) {
	var result struct {
		Balance uint64 `json:"balance"`
	}

	path := "/balances/" + hex.EncodeToString(asset[:]) + "/" + hex.EncodeToString(account[:])
	if err := c.do("GET", path, nil, &result); err != nil {
		return 0, err
	}

	return result.Balance, nil
}

// Pause sets the ledger pause flag. Admin only.
func (c *Client) Pause() error {
	return c.do("POST", "/pause", nil, nil)
}

// Resume clears the ledger pause flag. Admin only.
func (c *Client) Resume() error {
	return c.do("POST", "/resume", nil, nil)
}

// Status fetches the node status.
func (c *Client) Status() (*Status, error) {
	var result Status

	if err := c.do("GET", "/status", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// schedulePath builds the URL path of one schedule.
func schedulePath(beneficiary ledger.Account, id uint64) string {
	return fmt.Sprintf("/schedules/%s/%d", hex.EncodeToString(beneficiary[:]), id)
}
