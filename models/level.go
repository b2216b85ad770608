package models

// Level представляет иерархический уровень турнира.
type Level string

const (
	LevelCommunity Level = "community"
	LevelCounty    Level = "county"
	LevelRegional  Level = "regional"
	LevelNational  Level = "national"
	LevelSpecial   Level = "special"
)

// Entity ids for the levels that have a single implicit entity.
const (
	NationalEntityID = "national"
	SpecialEntityID  = "special"
)

// levelDescriptor параметризует диспетчеризацию по уровню одной таблицей,
// вместо дублирования switch для каждого уровня.
type levelDescriptor struct {
	prefix string // match-id prefix (COMM_c1_match_1 etc.)
	title  string // round label name ("Community_SF")
	prior  Level  // level whose finishers feed this one; empty for entry levels
}

var descriptors = map[Level]levelDescriptor{
	LevelCommunity: {prefix: "COMM", title: "Community"},
	LevelCounty:    {prefix: "CNTY", title: "County", prior: LevelCommunity},
	LevelRegional:  {prefix: "REGL", title: "Regional", prior: LevelCounty},
	LevelNational:  {prefix: "NATL", title: "National", prior: LevelRegional},
	LevelSpecial:   {prefix: "SPCL", title: "Special"},
}

func (l Level) Valid() bool {
	_, ok := descriptors[l]
	return ok
}

// Prefix returns the level prefix used in match ids.
func (l Level) Prefix() string {
	return descriptors[l].prefix
}

// Title returns the level name as used in round labels.
func (l Level) Title() string {
	return descriptors[l].title
}

// PriorLevel returns the level whose finishers feed l, or empty.
func (l Level) PriorLevel() Level {
	return descriptors[l].prior
}
