package dto

import "encoding/json"

type MoleculeRow struct {
	MolID            int64           `json:"molid"`
	Mol              string          `json:"mol"`
	Name             string          `json:"name"`
	Smiles           string          `json:"smiles"`
	InchiKey14       string          `json:"inchikey14"`
	Formula          string          `json:"formula"`
	RefScore         float64         `json:"refscore"`
	ReactionSequence json.RawMessage `json:"reactionsequence"`
	Predicted        bool            `json:"predicted"`
	Mim              float64         `json:"mim"`
	LogP             float64         `json:"logp"`
	Reference        string          `json:"reference"`
	NHits            int64           `json:"nhits"`
	Assigned         bool            `json:"assigned"`
	// Scan scoped columns, present only when the page was built for a scan.
	Score    *float64 `json:"score,omitempty"`
	DeltaPpm *float64 `json:"deltappm,omitempty"`
	Mz       *float64 `json:"mz,omitempty"`
}

type MoleculesPage struct {
	Total int64         `json:"total"`
	Rows  []MoleculeRow `json:"rows"`
	Page  int64         `json:"page"`
	MolID *int64        `json:"molid,omitempty"`
}

type ScanHit struct {
	ID int64   `json:"id"`
	Rt float64 `json:"rt"`
}

type ChromatogramPoint struct {
	Rt        float64 `json:"rt"`
	Intensity float64 `json:"intensity"`
}

type ChromatogramScan struct {
	ID            int64   `json:"id"`
	Rt            float64 `json:"rt"`
	Intensity     float64 `json:"intensity"`
	AssignedPeaks int64   `json:"ap"`
}

type Chromatogram struct {
	Scans  []ChromatogramScan `json:"scans"`
	Cutoff *float64           `json:"cutoff"`
}

type SpectrumPeak struct {
	Mz            float64 `json:"mz"`
	Intensity     float64 `json:"intensity"`
	AssignedMolID *int64  `json:"assigned_molid"`
}

type SpectrumPrecursor struct {
	ID *int64   `json:"id"`
	Mz *float64 `json:"mz"`
}

type FragmentMarker struct {
	Mz float64 `json:"mz"`
}

type Spectrum struct {
	Peaks     []SpectrumPeak    `json:"peaks"`
	Cutoff    *float64          `json:"cutoff"`
	MsLevel   int               `json:"mslevel"`
	Precursor SpectrumPrecursor `json:"precursor"`
	// Distinct fragment mz markers, level 1 scans only.
	Fragments []FragmentMarker `json:"fragments,omitempty"`
}

type FragmentNode struct {
	FragID     int64          `json:"fragid"`
	ScanID     int64          `json:"scanid"`
	MolID      int64          `json:"molid"`
	Score      float64        `json:"score"`
	Mol        string         `json:"mol"`
	Atoms      string         `json:"atoms"`
	Mz         float64        `json:"mz"`
	Mass       float64        `json:"mass"`
	DeltaH     float64        `json:"deltah"`
	DeltaPpm   float64        `json:"deltappm"`
	Formula    string         `json:"formula"`
	MsLevel    int            `json:"mslevel"`
	Expanded   bool           `json:"expanded"`
	Leaf       bool           `json:"leaf"`
	IsAssigned *bool          `json:"isAssigned,omitempty"`
	Children   []FragmentNode `json:"children,omitempty"`
}

// FragmentTree is the root response: the root fragments of one
// (scan, molecule) pair with their direct children preloaded.
type FragmentTree struct {
	Children []FragmentNode `json:"children"`
	Expanded bool           `json:"expanded"`
}

type AssignPeakRequest struct {
	ScanID int64   `json:"scanid"`
	Mz     float64 `json:"mz"`
	MolID  int64   `json:"molid"`
}

type UnassignPeakRequest struct {
	ScanID int64   `json:"scanid"`
	Mz     float64 `json:"mz"`
}

// ResultsInfo describes the run that produced a store and how deep its
// spectral tree goes.
type ResultsInfo struct {
	Description         string  `json:"description"`
	MsFilename          string  `json:"ms_filename"`
	MsIntensityCutoff   float64 `json:"ms_intensity_cutoff"`
	MsmsIntensityCutoff float64 `json:"msms_intensity_cutoff"`
	MzPrecision         float64 `json:"mz_precision"`
	MaxMSLevel          int     `json:"maxmslevel"`
}
