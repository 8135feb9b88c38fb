package gacha

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidPart = errors.New("invalid part")

// StatKind selects which stat range a part rolls from.
type StatKind uint8

const (
	KindAtk StatKind = iota
	KindDef
	numKinds
)

func (k StatKind) String() string {
	if k == KindDef {
		return "def"
	}
	return "atk"
}

// Part is an equipment slot.
type Part uint8

const (
	PartWeapon Part = iota
	PartGloves
	PartNecklace
	PartHelmet
	PartArmor
	PartBoots
	partCount
)

// NumParts is the size of the part enumeration.
const NumParts = int(partCount)

var partInfo = [NumParts]struct {
	name string
	kind StatKind
}{
	{"weapon", KindAtk},
	{"gloves", KindAtk},
	{"necklace", KindAtk},
	{"helmet", KindDef},
	{"armor", KindDef},
	{"boots", KindDef},
}

func (p Part) Valid() bool { return p < partCount }

func (p Part) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Part(%d)", uint8(p))
	}
	return partInfo[p].name
}

func (p Part) Kind() StatKind { return partInfo[p].kind }

func ParsePart(s string) (Part, error) {
	for i, info := range partInfo {
		if info.name == s {
			return Part(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPart, s)
}

func (p Part) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPart, uint8(p))
	}
	return []byte(partInfo[p].name), nil
}

func (p *Part) UnmarshalText(b []byte) error {
	v, err := ParsePart(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Item is a rolled piece of equipment. Level is only changed by the forge.
type Item struct {
	Tier     Tier `json:"tier"`
	Part     Part `json:"part"`
	BaseStat int  `json:"base_stat"`
	Level    int  `json:"level"`
}

// StatRange is an inclusive integer range.
type StatRange struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// StatTable holds the base stat range for every tier and stat kind.
type StatTable [NumTiers][numKinds]StatRange

// Range returns the range a (tier, part) combination rolls from.
func (st *StatTable) Range(t Tier, p Part) StatRange {
	return st[t][p.Kind()]
}

// Set replaces the range for one tier and kind.
func (st *StatTable) Set(t Tier, k StatKind, r StatRange) {
	st[t][k] = r
}

// DefaultStatTable is the built-in table used when configuration leaves a tier out.
func DefaultStatTable() StatTable {
	return StatTable{
		TierSSSPlus: {{Lo: 900, Hi: 1000}, {Lo: 600, Hi: 700}},
		TierSSPlus:  {{Lo: 700, Hi: 850}, {Lo: 480, Hi: 580}},
		TierSPlus:   {{Lo: 520, Hi: 650}, {Lo: 360, Hi: 450}},
		TierS:       {{Lo: 380, Hi: 480}, {Lo: 260, Hi: 330}},
		TierA:       {{Lo: 250, Hi: 340}, {Lo: 170, Hi: 230}},
		TierB:       {{Lo: 150, Hi: 220}, {Lo: 100, Hi: 150}},
		TierC:       {{Lo: 80, Hi: 130}, {Lo: 50, Hi: 90}},
		TierD:       {{Lo: 30, Hi: 70}, {Lo: 20, Hi: 45}},
	}
}

// Materialize rolls a concrete item: a uniform part, then a base stat uniform
// over the inclusive range for (tier, part kind). Level starts at 0. A nil
// table means DefaultStatTable.
func Materialize(t Tier, table *StatTable, rng RandomSource) (Item, error) {
	if !t.Valid() {
		return Item{}, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	if table == nil {
		d := DefaultStatTable()
		table = &d
	}
	if rng == nil {
		rng = NewRNG("")
	}
	idx := int(math.Floor(rng.Float64() * float64(NumParts)))
	if idx >= NumParts {
		idx = NumParts - 1
	}
	part := Part(idx)

	r := table.Range(t, part)
	lo, hi := r.Lo, r.Hi
	if hi < lo {
		lo, hi = hi, lo
	}
	stat := int(math.Floor(float64(lo) + rng.Float64()*float64(hi-lo+1)))
	if stat > hi {
		stat = hi
	}
	if stat < 0 {
		stat = 0
	}
	return Item{Tier: t, Part: part, BaseStat: stat, Level: 0}, nil
}
