package model

// Run holds the settings the annotation engine ran with. The engine appends
// a row when it finishes; readers always take the latest one.
type Run struct {
	RunID              int64   `gorm:"primaryKey;autoIncrement;column:runid"`
	Description        string
	MsFilename         string  `gorm:"column:ms_filename"`
	MsIntensityCutoff  float64 `gorm:"column:ms_intensity_cutoff"`
	MsmsIntensityCutoff float64 `gorm:"column:msms_intensity_cutoff"`
	MzPrecision        float64 `gorm:"column:mz_precision"`
}

func (Run) TableName() string {
	return "run"
}
