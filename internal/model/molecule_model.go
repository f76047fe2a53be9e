package model

import "gorm.io/datatypes"

// Molecule is written once by the annotation engine and never mutated
// afterwards; only peak assignments reference it.
type Molecule struct {
	MolID            int64          `gorm:"primaryKey;column:molid"`
	Mol              string         // structure block (molfile)
	Name             string
	Smiles           string
	InchiKey14       string         `gorm:"column:inchikey14"`
	Formula          string
	RefScore         float64        `gorm:"column:refscore"`
	Predicted        bool
	Mim              float64
	LogP             float64        `gorm:"column:logp"`
	Reference        string
	ReactionSequence datatypes.JSON `gorm:"column:reactionsequence"`
	NHits            int64          `gorm:"column:nhits"`
}

func (Molecule) TableName() string {
	return "molecules"
}

// Reaction is a directed edge between two molecules, used only to filter
// molecules on reaction membership.
type Reaction struct {
	ReactID  int64  `gorm:"primaryKey;autoIncrement;column:reactid"`
	Reactant int64  `gorm:"index"`
	Product  int64  `gorm:"index"`
	Name     string
}

func (Reaction) TableName() string {
	return "reactions"
}
