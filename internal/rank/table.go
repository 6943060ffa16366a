package rank

// Deltas are the flat elo adjustments applied to players in a band.
type Deltas struct {
	Win  int
	Loss int
	Draw int
}

// Band is one rank: a name, the elo threshold where it starts, and the
// deltas applied to players holding it.
type Band struct {
	Threshold int
	Name      string
	Deltas    Deltas
}

// table is ascending and contiguous: a band runs from its threshold up to
// the next band's threshold. Lookup is boundary-inclusive, so an elo equal
// to a threshold already belongs to the band starting there.
var table = []Band{
	{0, "Stone I", Deltas{35, 5, 5}},
	{100, "Stone II", Deltas{35, 5, 5}},
	{200, "Stone III", Deltas{35, 5, 5}},
	{300, "Iron I", Deltas{30, 10, 4}},
	{400, "Iron II", Deltas{30, 10, 4}},
	{500, "Iron III", Deltas{30, 10, 4}},
	{600, "Gold I", Deltas{25, 15, 3}},
	{700, "Gold II", Deltas{25, 15, 3}},
	{800, "Gold III", Deltas{25, 15, 3}},
	{900, "Diamond I", Deltas{20, 20, 2}},
	{1000, "Diamond II", Deltas{20, 20, 2}},
	{1100, "Diamond III", Deltas{20, 20, 2}},
	{1200, "Emerald I", Deltas{15, 25, 2}},
	{1300, "Emerald II", Deltas{15, 25, 2}},
	{1400, "Emerald III", Deltas{15, 25, 2}},
	{1500, "Sapphire I", Deltas{12, 30, 1}},
	{1600, "Sapphire II", Deltas{12, 30, 1}},
	{1700, "Sapphire III", Deltas{12, 30, 1}},
	{1800, "Ruby I", Deltas{10, 35, 1}},
	{1900, "Ruby II", Deltas{10, 35, 1}},
	{2000, "Ruby III", Deltas{10, 35, 1}},
	{2100, "Opal I", Deltas{8, 40, 0}},
	{2200, "Opal II", Deltas{8, 40, 0}},
	{2300, "Opal III", Deltas{8, 40, 0}},
}

// ForElo returns the rank name for a non-negative elo. Defined for every
// elo >= 0; negative input is treated as 0.
func ForElo(elo int) string {
	if elo < 0 {
		elo = 0
	}
	name := table[0].Name
	for _, b := range table {
		if elo >= b.Threshold {
			name = b.Name
			continue
		}
		break
	}
	return name
}

// DeltasFor returns the win/loss/draw deltas for a rank name.
func DeltasFor(name string) (Deltas, bool) {
	for _, b := range table {
		if b.Name == name {
			return b.Deltas, true
		}
	}
	return Deltas{}, false
}

// DeltasForElo is the combined lookup used by the rating engine.
func DeltasForElo(elo int) Deltas {
	d, _ := DeltasFor(ForElo(elo))
	return d
}

// Names returns all rank names in ascending order.
func Names() []string {
	names := make([]string, len(table))
	for i, b := range table {
		names[i] = b.Name
	}
	return names
}

// Valid reports whether name is a known rank.
func Valid(name string) bool {
	_, ok := DeltasFor(name)
	return ok
}
