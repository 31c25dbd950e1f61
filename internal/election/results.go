package election

import (
	"math"
	"sort"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// CandidateResult is one ranked row of a position's results.
type CandidateResult struct {
	CandidateID            uint    `json:"candidate_id"`
	Name                   string  `json:"name"`
	Partylist              string  `json:"partylist"`
	PhotoURL               string  `json:"photo_url"`
	VoteCount              int64   `json:"vote_count"`
	Percentage             float64 `json:"percentage"`
	Rank                   int     `json:"rank"`
	IsWinner               bool    `json:"is_winner"`
	ManuallySelectedWinner bool    `json:"manually_selected_winner"`
	Tied                   bool    `json:"tied"`
}

// Tie lists the candidates sharing the vote count at the winning threshold.
type Tie struct {
	Threshold      int64  `json:"threshold"`
	CandidateIDs   []uint `json:"candidate_ids"`
	ContestedSeats int    `json:"contested_seats"`
	Resolved       bool   `json:"resolved"`
}

// PositionResult holds the ranked candidates of one position.
type PositionResult struct {
	PositionID      uint              `json:"position_id"`
	PositionName    string            `json:"position_name"`
	MaxSelection    int               `json:"max_selection"`
	TotalVotes      int64             `json:"total_votes"`
	Candidates      []CandidateResult `json:"candidates"`
	Tie             *Tie              `json:"tie,omitempty"`
	HasManualWinner bool              `json:"has_manual_winner"`
}

// ComputeResults ranks the candidates of every position by the votes they received.
//
// Manually selected winners sort first, the rest by descending vote count with ties kept in
// input order. A tie is reported when more than one candidate shares the non-zero vote count
// of the last winning slot. The function is deterministic for identical inputs.
func ComputeResults(positions []models.Position, candidates []models.Candidate, votes []models.Vote) []PositionResult {
	counts := make(map[uint]int64, len(candidates))
	for _, vote := range votes {
		counts[vote.CandidateID]++
	}

	ordered := append([]models.Position(nil), positions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})

	results := make([]PositionResult, 0, len(ordered))
	for _, position := range ordered {
		results = append(results, computePosition(position, candidates, counts))
	}
	return results
}

func computePosition(position models.Position, candidates []models.Candidate, counts map[uint]int64) PositionResult {
	maxSelection := position.MaxSelection
	if maxSelection < 1 {
		maxSelection = 1
	}

	rows := make([]CandidateResult, 0)
	var total int64
	for _, candidate := range candidates {
		if candidate.PositionID != position.ID {
			continue
		}
		count := counts[candidate.ID]
		total += count
		rows = append(rows, CandidateResult{
			CandidateID:            candidate.ID,
			Name:                   candidate.Name,
			Partylist:              candidate.Partylist,
			PhotoURL:               candidate.PhotoURL,
			VoteCount:              count,
			ManuallySelectedWinner: candidate.ManuallySelectedWinner,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ManuallySelectedWinner != rows[j].ManuallySelectedWinner {
			return rows[i].ManuallySelectedWinner
		}
		return rows[i].VoteCount > rows[j].VoteCount
	})

	result := PositionResult{
		PositionID:   position.ID,
		PositionName: position.Name,
		MaxSelection: maxSelection,
		TotalVotes:   total,
	}

	for i := range rows {
		rows[i].Rank = i + 1
		if total > 0 {
			rows[i].Percentage = roundOneDecimal(float64(rows[i].VoteCount) / float64(total) * 100)
		}
		rows[i].IsWinner = rows[i].ManuallySelectedWinner || rows[i].Rank <= maxSelection
		if rows[i].ManuallySelectedWinner {
			result.HasManualWinner = true
		}
	}

	result.Tie = detectTie(rows, maxSelection)
	result.Candidates = rows
	return result
}

func detectTie(rows []CandidateResult, maxSelection int) *Tie {
	if len(rows) == 0 {
		return nil
	}

	counts := make([]int64, len(rows))
	for i := range rows {
		counts[i] = rows[i].VoteCount
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i] > counts[j] })

	index := maxSelection - 1
	if index >= len(counts) {
		index = len(counts) - 1
	}
	threshold := counts[index]
	if threshold <= 0 {
		return nil
	}

	tie := &Tie{Threshold: threshold}
	for i := range rows {
		if rows[i].VoteCount == threshold {
			tie.CandidateIDs = append(tie.CandidateIDs, rows[i].CandidateID)
		}
	}
	if len(tie.CandidateIDs) < 2 {
		return nil
	}

	ahead, picked := 0, 0
	for i := range rows {
		if rows[i].VoteCount > threshold {
			ahead++
			continue
		}
		if rows[i].VoteCount != threshold {
			continue
		}
		rows[i].Tied = true
		if rows[i].ManuallySelectedWinner {
			picked++
		}
	}
	// Seats still open once every candidate above the threshold is seated.
	tie.ContestedSeats = maxSelection - ahead
	if tie.ContestedSeats > len(tie.CandidateIDs) {
		tie.ContestedSeats = len(tie.CandidateIDs)
	}
	if tie.ContestedSeats < 1 {
		tie.ContestedSeats = 1
	}
	tie.Resolved = picked >= tie.ContestedSeats
	return tie
}

// Tally flattens results into per-candidate vote counts.
func Tally(results []PositionResult) map[uint]int64 {
	tally := make(map[uint]int64)
	for _, position := range results {
		for _, candidate := range position.Candidates {
			tally[candidate.CandidateID] = candidate.VoteCount
		}
	}
	return tally
}

// Ties returns the positions whose winning slot is contested and not yet resolved.
func Ties(results []PositionResult) []PositionResult {
	contested := make([]PositionResult, 0)
	for _, position := range results {
		if position.Tie != nil && !position.Tie.Resolved {
			contested = append(contested, position)
		}
	}
	return contested
}

func roundOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}
