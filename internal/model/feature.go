package model

// Raw and derived column keys.
const (
	ColTimeLeftSec     = "tLeftSec"
	ColDurationPlanned = "durationPlannedSec"
	ColScore           = "score"
	ColMiss            = "miss"
	ColBossHp          = "bossHp"
	ColBossHpMax       = "bossHpMax"
	ColRt1s            = "rt_1s"
	ColAccGoodPct      = "accGoodPct"
	ColMiniOn          = "miniOn"
	ColMiniNow         = "miniNow"
	ColMiniCleared     = "miniCleared"

	ColTimeLeftNorm = "timeLeftNorm"
	ColBossHpNorm   = "bossHpNorm"
	ColRtAvg5s      = "rtAvg_5s"
	ColScoreDelta   = "scoreDelta_1s"
	ColMissDelta    = "missDelta_1s"
)

// DefaultFeatures is the column order of every window tensor unless overridden.
// The serving-time pipeline must reproduce it exactly.
var DefaultFeatures = []string{
	// time
	ColTimeLeftNorm,
	// state
	ColScore,
	ColMiss,
	"combo",
	"fever",
	"shield",
	"spawnRate",
	// phases
	"bossOn",
	"bossPhase",
	ColBossHpNorm,
	"stormOn",
	"rageOn",
	// per-second counts
	"goodHit_1s",
	"junkHit_1s",
	"expireGood_1s",
	"starHit_1s",
	"shieldHit_1s",
	"diamondHit_1s",
	// rolling
	ColRtAvg5s,
	// deltas
	ColScoreDelta,
	ColMissDelta,
}

// RequiredColumns are zero-filled when the tick log does not carry them.
var RequiredColumns = []string{
	ColTimeLeftSec,
	ColScore, ColMiss, "combo", "fever", "shield", "spawnRate",
	"bossOn", "bossPhase", ColBossHp, ColBossHpMax, "stormOn", "rageOn",
	"goodHit_1s", "junkHit_1s", "expireGood_1s", "starHit_1s", "shieldHit_1s", "diamondHit_1s",
	ColRtAvg5s,
	ColDurationPlanned,
}

// DerivedDefinition describes one derived column for the serving-time pipeline.
type DerivedDefinition struct {
	Name    string   `json:"name" msgpack:"name"`
	Kind    string   `json:"kind" msgpack:"kind"`
	Sources []string `json:"sources" msgpack:"sources"`
	Window  int      `json:"window,omitempty" msgpack:"window,omitempty"`
	Default float64  `json:"default" msgpack:"default"`
}

const (
	DerivedKindDelta   = "delta"
	DerivedKindRolling = "rolling_mean"
	DerivedKindRatio   = "ratio"

	RollingRtWindow = 5
)

// DerivedDefinitions lists every derived column in computation order.
var DerivedDefinitions = []DerivedDefinition{
	{Name: ColTimeLeftNorm, Kind: DerivedKindRatio, Sources: []string{ColTimeLeftSec, ColDurationPlanned}},
	{Name: ColBossHpNorm, Kind: DerivedKindRatio, Sources: []string{ColBossHp, ColBossHpMax}},
	{Name: ColScoreDelta, Kind: DerivedKindDelta, Sources: []string{ColScore}},
	{Name: ColMissDelta, Kind: DerivedKindDelta, Sources: []string{ColMiss}},
	{Name: ColRtAvg5s, Kind: DerivedKindRolling, Sources: []string{ColRt1s}, Window: RollingRtWindow},
}
