// Package futstats provides a client for the FutStats backend HTTP API.
// The backend shapes are external contracts; everything is decoded into
// explicit structs at this boundary.
package futstats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/fetch"
)

const (
	// Attempt/timeout budgets for the primary data endpoints.
	dataTries   = 4
	dataTimeout = 20 * time.Second

	// Per-match summary calls are best-effort and get a smaller budget.
	summaryTries   = 3
	summaryTimeout = 20 * time.Second
)

// Client provides access to the FutStats backend API.
type Client struct {
	base string
	http *fetch.Client
}

// NewClient creates a new FutStats client. base must end with a slash.
func NewClient(base string, httpClient *fetch.Client) *Client {
	if httpClient == nil {
		httpClient = fetch.NewClient()
	}
	return &Client{base: base, http: httpClient}
}

// FlexID handles identifiers that arrive as either JSON numbers or strings.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// OptFloat is a float that may be absent or wrong-typed in the backend JSON.
// Absent and non-numeric values decode as invalid instead of failing the
// whole payload.
type OptFloat struct {
	Value float64
	Valid bool
}

func (o *OptFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*o = OptFloat{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*o = OptFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*o = OptFloat{}
			return nil
		}
		*o = OptFloat{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*o = OptFloat{}
		return nil
	}
	*o = OptFloat{Value: v, Valid: true}
	return nil
}

// MarshalJSON emits the number, or null when absent.
func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Or returns the value, or def when absent.
func (o OptFloat) Or(def float64) float64 {
	if o.Valid {
		return o.Value
	}
	return def
}

// Team represents one side of a match.
type Team struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Match represents a scheduled match from /matches/today/.
type Match struct {
	ID       FlexID `json:"id"`
	League   string `json:"league"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	HomeTeam Team   `json:"homeTeam"`
	AwayTeam Team   `json:"awayTeam"`
}

// Probability represents a per-match probability pair from /probabilities/today/.
type Probability struct {
	MatchID FlexID   `json:"match_id"`
	Over25  OptFloat `json:"over_25"`
	BTTSYes OptFloat `json:"btts_yes"`
}

// ValueBet represents a market opportunity from /value-bets/.
type ValueBet struct {
	MatchID               FlexID   `json:"match_id"`
	Match                 string   `json:"match"`
	League                string   `json:"league"`
	Date                  string   `json:"date"`
	BetName               string   `json:"bet_name"`
	BetType               string   `json:"bet_type"`
	Odd                   OptFloat `json:"odd"`
	CalculatedProbability OptFloat `json:"calculated_probability"`
	ImpliedProbability    OptFloat `json:"implied_probability"`
	Difference            OptFloat `json:"difference"`
	BestBookmaker         string   `json:"best_bookmaker"`
	IsBrazilianBookmaker  bool     `json:"is_brazilian_bookmaker"`
}

// Probabilities is the probability pair embedded in a match summary.
type Probabilities struct {
	Over25  OptFloat `json:"over_25"`
	BTTSYes OptFloat `json:"btts_yes"`
}

// RateSample carries the historical sample size behind a team's rates.
type RateSample struct {
	SampleSize OptFloat `json:"sample_size"`
}

// TeamRates carries per-match reliability metadata.
type TeamRates struct {
	Home        RateSample `json:"home"`
	Away        RateSample `json:"away"`
	SampleLimit OptFloat   `json:"sample_limit"`
	Quality     string     `json:"quality"`
}

// MatchSummary is the enriched per-match record from /matches/{id}/.
type MatchSummary struct {
	ID            FlexID         `json:"id"`
	League        string         `json:"league"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	HomeTeam      Team           `json:"homeTeam"`
	AwayTeam      Team           `json:"awayTeam"`
	Probabilities *Probabilities `json:"probabilities"`
	TeamRates     TeamRates      `json:"team_rates"`
}

// MatchesToday retrieves today's matches.
func (c *Client) MatchesToday(ctx context.Context) ([]Match, error) {
	var matches []Match
	url := c.base + "matches/today/"
	if err := c.http.JSON(ctx, url, fetch.Options{Tries: dataTries, Timeout: dataTimeout}, &matches); err != nil {
		return nil, fmt.Errorf("failed to fetch today's matches: %w", err)
	}
	log.Debug().Int("count", len(matches)).Msg("Fetched matches")
	return matches, nil
}

// ProbabilitiesToday retrieves today's probability records.
func (c *Client) ProbabilitiesToday(ctx context.Context) ([]Probability, error) {
	var probs []Probability
	url := c.base + "probabilities/today/"
	if err := c.http.JSON(ctx, url, fetch.Options{Tries: dataTries, Timeout: dataTimeout}, &probs); err != nil {
		return nil, fmt.Errorf("failed to fetch probabilities: %w", err)
	}
	log.Debug().Int("count", len(probs)).Msg("Fetched probabilities")
	return probs, nil
}

// ValueBets retrieves the current value-bet list.
func (c *Client) ValueBets(ctx context.Context, limit int) ([]ValueBet, error) {
	var bets []ValueBet
	url := fmt.Sprintf("%svalue-bets/?limit=%d", c.base, limit)
	if err := c.http.JSON(ctx, url, fetch.Options{Tries: dataTries, Timeout: dataTimeout}, &bets); err != nil {
		return nil, fmt.Errorf("failed to fetch value bets: %w", err)
	}
	log.Debug().Int("count", len(bets)).Msg("Fetched value bets")
	return bets, nil
}

// GetMatchSummary retrieves the enriched summary for a single match.
func (c *Client) GetMatchSummary(ctx context.Context, matchID FlexID, sampleLimit int) (*MatchSummary, error) {
	var summary MatchSummary
	url := fmt.Sprintf("%smatches/%s/?sample_limit=%d", c.base, matchID, sampleLimit)
	if err := c.http.JSON(ctx, url, fetch.Options{Tries: summaryTries, Timeout: summaryTimeout}, &summary); err != nil {
		return nil, fmt.Errorf("failed to fetch match %s summary: %w", matchID, err)
	}
	return &summary, nil
}
