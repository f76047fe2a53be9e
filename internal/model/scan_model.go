package model

// Scan is one mass spectrometry scan. Level >1 scans point to their
// precursor scan and mz.
type Scan struct {
	ScanID            int64    `gorm:"primaryKey;column:scanid"`
	MsLevel           int      `gorm:"column:mslevel"`
	Rt                float64
	BasePeakIntensity float64  `gorm:"column:basepeakintensity"`
	PrecursorScanID   *int64   `gorm:"column:precursorscanid"`
	PrecursorMz       *float64 `gorm:"column:precursormz"`
}

func (Scan) TableName() string {
	return "scans"
}

// Peak belongs to exactly one scan. AssignedMolID is the only mutable field
// in the result store and must reference an existing molecule when set.
type Peak struct {
	ScanID        int64   `gorm:"primaryKey;column:scanid;autoIncrement:false"`
	Mz            float64 `gorm:"primaryKey;autoIncrement:false"`
	Intensity     float64
	AssignedMolID *int64  `gorm:"column:assigned_molid"`
}

func (Peak) TableName() string {
	return "peaks"
}

// Fragment is a substructure match of a molecule on a scan. Fragments form a
// tree per (scanid, molid) pair, rooted at ParentFragID == 0.
type Fragment struct {
	FragID       int64   `gorm:"primaryKey;autoIncrement;column:fragid"`
	ScanID       int64   `gorm:"column:scanid;index"`
	MolID        int64   `gorm:"column:molid;index"`
	ParentFragID int64   `gorm:"column:parentfragid;index"`
	Mz           float64
	Mass         float64
	Score        float64
	DeltaH       float64 `gorm:"column:deltah"`
	DeltaPpm     float64 `gorm:"column:deltappm"`
	Formula      string
	Atoms        string // comma separated atom indices
}

func (Fragment) TableName() string {
	return "fragments"
}
