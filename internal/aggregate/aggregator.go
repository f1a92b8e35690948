// Package aggregate joins the day's matches, probabilities and value bets
// into the single payload handed to content generation.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/futstats/dailypost/internal/futstats"
)

// QualityUnavailable marks a top match whose sample enrichment failed.
const QualityUnavailable = "unavailable"

// SampleSummary carries the reliability metadata behind a top match.
type SampleSummary struct {
	SampleLimit    int    `json:"sample_limit"`
	HomeSampleSize *int   `json:"home_sample_size,omitempty"`
	AwaySampleSize *int   `json:"away_sample_size,omitempty"`
	MinSampleSize  int    `json:"min_sample_size"`
	Quality        string `json:"quality,omitempty"`
}

// LowConfidence reports whether the sample is too small to trust.
func (s SampleSummary) LowConfidence() bool {
	return s.Quality == QualityUnavailable || s.MinSampleSize < s.SampleLimit
}

// TopMatch is one ranked, enriched match in the payload.
type TopMatch struct {
	ID     futstats.FlexID        `json:"id"`
	League string                 `json:"league"`
	Date   string                 `json:"date"`
	Time   string                 `json:"time"`
	Home   string                 `json:"home"`
	Away   string                 `json:"away"`
	Probs  futstats.Probabilities `json:"probs"`
	Sample SampleSummary          `json:"sample"`
}

// Notes records payload provenance.
type Notes struct {
	Source   string `json:"source"`
	APIBase  string `json:"api_base"`
	Timezone string `json:"timezone"`
}

// Payload is the unit handed to the generation adapter. Built fresh each
// run and passed by reference through the pipeline; later stages never
// mutate it.
type Payload struct {
	Date       string              `json:"date"`
	TopMatches []TopMatch          `json:"topMatches"`
	ValueBets  []futstats.ValueBet `json:"valueBets"`
	Notes      Notes               `json:"notes"`
}

// Config holds the aggregation limits and provenance labels.
type Config struct {
	TopMatches  int
	ValueBets   int
	SampleLimit int
	APIBase     string
	Timezone    string
}

// Aggregator builds the daily payload from the FutStats backend.
type Aggregator struct {
	client *futstats.Client
	cfg    Config
}

// New creates a new aggregator.
func New(client *futstats.Client, cfg Config) *Aggregator {
	return &Aggregator{client: client, cfg: cfg}
}

// Build fetches the three primary collections concurrently, ranks the
// matches and enriches the top slice with sample metadata. A failure of
// any primary fetch is fatal; individual enrichment failures only degrade
// the affected match.
func (a *Aggregator) Build(ctx context.Context, date string) (*Payload, error) {
	var (
		matches []futstats.Match
		probs   []futstats.Probability
		bets    []futstats.ValueBet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = a.client.MatchesToday(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		probs, err = a.client.ProbabilitiesToday(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bets, err = a.client.ValueBets(gctx, a.cfg.ValueBets)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate daily data: %w", err)
	}

	probsByMatch := indexProbabilities(probs)
	top := rankMatches(matches, probsByMatch, a.cfg.TopMatches)

	log.Info().
		Int("matches", len(matches)).
		Int("probabilities", len(probs)).
		Int("value_bets", len(bets)).
		Int("top_matches", len(top)).
		Msg("Daily data loaded")

	enriched := make([]TopMatch, 0, len(top))
	for _, r := range top {
		enriched = append(enriched, a.enrich(ctx, r))
	}

	return &Payload{
		Date:       date,
		TopMatches: enriched,
		ValueBets:  bets,
		Notes: Notes{
			Source:   "FutStats API",
			APIBase:  a.cfg.APIBase,
			Timezone: a.cfg.Timezone,
		},
	}, nil
}

// ranked pairs a match with its probability record and score.
type ranked struct {
	match futstats.Match
	probs futstats.Probabilities
	score float64
}

// indexProbabilities builds a match-id index over the probability records.
func indexProbabilities(probs []futstats.Probability) map[futstats.FlexID]futstats.Probabilities {
	byMatch := make(map[futstats.FlexID]futstats.Probabilities, len(probs))
	for _, p := range probs {
		if p.MatchID == "" {
			continue
		}
		byMatch[p.MatchID] = futstats.Probabilities{Over25: p.Over25, BTTSYes: p.BTTSYes}
	}
	return byMatch
}

// rankMatches orders matches by max(over_25, btts_yes) descending, treating
// absent values as zero, and keeps the top slice.
func rankMatches(matches []futstats.Match, byMatch map[futstats.FlexID]futstats.Probabilities, limit int) []ranked {
	list := make([]ranked, 0, len(matches))
	for _, m := range matches {
		p := byMatch[m.ID]
		score := p.Over25.Or(0)
		if b := p.BTTSYes.Or(0); b > score {
			score = b
		}
		list = append(list, ranked{match: m, probs: p, score: score})
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// enrich fetches the per-match summary. On failure the match is kept with
// its original probability data and an unavailable-sample marker.
func (a *Aggregator) enrich(ctx context.Context, r ranked) TopMatch {
	tm := TopMatch{
		ID:     r.match.ID,
		League: r.match.League,
		Date:   r.match.Date,
		Time:   r.match.Time,
		Home:   r.match.HomeTeam.Name,
		Away:   r.match.AwayTeam.Name,
		Probs:  r.probs,
	}

	summary, err := a.client.GetMatchSummary(ctx, r.match.ID, a.cfg.SampleLimit)
	if err != nil {
		log.Warn().
			Str("match_id", r.match.ID.String()).
			Err(err).
			Msg("Sample enrichment failed, keeping match without sample")
		tm.Sample = SampleSummary{SampleLimit: a.cfg.SampleLimit, Quality: QualityUnavailable}
		return tm
	}

	if summary.ID != "" {
		tm.ID = summary.ID
	}
	if summary.League != "" {
		tm.League = summary.League
	}
	if summary.Date != "" {
		tm.Date = summary.Date
	}
	if summary.Time != "" {
		tm.Time = summary.Time
	}
	if summary.HomeTeam.Name != "" {
		tm.Home = summary.HomeTeam.Name
	}
	if summary.AwayTeam.Name != "" {
		tm.Away = summary.AwayTeam.Name
	}
	if summary.Probabilities != nil {
		tm.Probs = *summary.Probabilities
	}

	tm.Sample = buildSample(summary.TeamRates, a.cfg.SampleLimit)
	return tm
}

// buildSample derives the sample summary, with min_sample_size as the
// smaller of the two team sample sizes.
func buildSample(rates futstats.TeamRates, defaultLimit int) SampleSummary {
	s := SampleSummary{
		SampleLimit: int(rates.SampleLimit.Or(float64(defaultLimit))),
		Quality:     rates.Quality,
	}

	home := int(rates.Home.SampleSize.Or(0))
	away := int(rates.Away.SampleSize.Or(0))
	if rates.Home.SampleSize.Valid {
		s.HomeSampleSize = &home
	}
	if rates.Away.SampleSize.Valid {
		s.AwaySampleSize = &away
	}

	s.MinSampleSize = home
	if away < home {
		s.MinSampleSize = away
	}
	return s
}
