package brackets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// Match id suffixes per the id grammar
// <RoundLabel>_<LevelPrefix>_<EntityId>_<Suffix>.
const (
	SuffixSF1            = "SF1"
	SuffixSF2            = "SF2"
	SuffixWinnersFinal   = "WINNERS_FINAL"
	SuffixLosersFinal    = "LOSERS_FINAL"
	SuffixFinal          = "FINAL"
	SuffixInitial        = "INITIAL"
	SuffixPos23Final     = "POS23_FINAL"
	SuffixAutoPos1       = "AUTO_POS1"
	SuffixTwoPlayerFinal = "TWO_PLAYER_FINAL"
)

func MatchSuffix(n int) string { return fmt.Sprintf("match_%d", n) }
func ByeSuffix(n int) string   { return fmt.Sprintf("bye_%d", n) }

// MatchID builds the deterministic match id. Ids are stable across
// regenerations, which is what makes retries upsert instead of duplicate.
func MatchID(roundLabel string, level models.Level, entityID, suffix string) string {
	return fmt.Sprintf("%s_%s_%s_%s", roundLabel, level.Prefix(), entityID, suffix)
}

// Round labels. Elimination rounds are R1..Rn; once the pool drops to four
// or fewer the labels switch to the positioning phase.
func EliminationLabel(n int) string { return fmt.Sprintf("R%d", n) }

func SemiFinalLabel(l models.Level) string    { return l.Title() + "_SF" }
func WinnersFinalLabel(l models.Level) string { return l.Title() + "_WF" }
func LosersFinalLabel(l models.Level) string  { return l.Title() + "_LF" }

// FinalLabel is the short final label used by the 4-player regime and the
// direct two-player final ("Community_F").
func FinalLabel(l models.Level) string { return l.Title() + "_F" }

// PositioningFinalLabel is the label the 3-player regime plays both of its
// matches under ("Community_Final").
func PositioningFinalLabel(l models.Level) string { return l.Title() + "_Final" }

// ParseEliminationRound returns n for labels of the form "Rn".
func ParseEliminationRound(label string) (int, bool) {
	if len(label) < 2 || label[0] != 'R' {
		return 0, false
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// LabelRank orders round labels for auto-detection of the actual current
// round: final-phase labels beat elimination labels, and among Rn labels
// the higher n wins. The rank encodes Rn as n and final-phase labels above
// any realistic elimination depth.
func LabelRank(label string) int {
	const phaseBase = 1 << 20
	switch {
	case strings.HasSuffix(label, "_Final"), strings.HasSuffix(label, "_F"):
		return phaseBase + 4
	case strings.HasSuffix(label, "_WF"):
		return phaseBase + 3
	case strings.HasSuffix(label, "_LF"):
		return phaseBase + 2
	case strings.HasSuffix(label, "_SF"):
		return phaseBase + 1
	}
	if n, ok := ParseEliminationRound(label); ok {
		return n
	}
	// Legacy _WB/_LB/_3WS rounds sit between SF and WF.
	if strings.HasSuffix(label, "_WB") || strings.HasSuffix(label, "_LB") || strings.HasSuffix(label, "_3WS") {
		return phaseBase + 1
	}
	return 0
}

// IsFinalPhaseLabel reports whether the label belongs to the positioning
// phase rather than ordinary elimination.
func IsFinalPhaseLabel(label string) bool {
	return LabelRank(label) >= 1<<20
}
