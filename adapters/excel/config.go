package excel

// ReaderConfig selects what a DataReader reads from a workbook
type ReaderConfig struct {
	// Sheet holding the vector table; the first sheet when empty
	Sheet string `json:"sheet" yaml:"sheet"`
	// MetadataSheet optionally lists VECTOR, UNIT, IS_TOTAL per vector
	MetadataSheet string `json:"metadata_sheet" yaml:"metadata_sheet"`
}

// DefaultReaderConfig returns the conventional sheet layout
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{MetadataSheet: "metadata"}
}
